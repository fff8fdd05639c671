package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/fenlight/go-oai/oai"
)

func init() {
	// Put your API key in .env and this will load it.
	godotenv.Overload()
}

func main() {
	client := oai.NewClient(oai.APIConfig{APIKey: os.Getenv("OPENAI_API_KEY")})

	stream, err := client.StreamChatCompletion(context.Background(), oai.ChatRequest{
		Model: "gpt-4o-mini",
		Messages: []oai.ChatMessage{
			{Role: "user", Content: "Give me a random number between 1 and 100! Then tell me a poem about it."},
		},
	})
	if err != nil {
		panic(err)
	}
	defer stream.Close()

	for chunk, err := range stream.Events() {
		if err != nil {
			// Per-event decode problems don't end the stream.
			fmt.Fprintf(os.Stderr, "\nskipping event: %s\n", err)
			continue
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != nil {
			fmt.Print(*chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		panic(err)
	}

	fmt.Println()
}
