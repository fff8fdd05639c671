// Command oaichat is a small terminal front end for the client: it streams
// chat completions, lists models, and runs a one-shot realtime text turn.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"sigs.k8s.io/yaml"

	"github.com/fenlight/go-oai/oai"
	"github.com/fenlight/go-oai/realtime"
)

// profile is an optional YAML file holding connection settings; flags and
// environment variables fill in whatever it leaves out.
type profile struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Org     string `json:"org"`
	Project string `json:"project"`
}

func loadProfile(path string) (profile, error) {
	var p profile
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to parse profile: %w", err)
	}
	return p, nil
}

func configFromCommand(cmd *cli.Command) (oai.APIConfig, error) {
	p, err := loadProfile(cmd.String("profile"))
	if err != nil {
		return oai.APIConfig{}, err
	}
	if p.APIKey == "" {
		p.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if p.BaseURL == "" {
		p.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	return oai.APIConfig{APIKey: p.APIKey, Base: p.BaseURL, Org: p.Org, Project: p.Project}, nil
}

func main() {
	cmd := &cli.Command{
		Name:  "oaichat",
		Usage: "Talk to an OpenAI-compatible API from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "profile",
				Usage: "path to a YAML connection profile",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "model to use",
				Value: "gpt-4o-mini",
			},
		},
		Commands: []*cli.Command{
			chatCommand(),
			modelsCommand(),
			realtimeCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Stream a chat completion for the given prompt",
		ArgsUsage: "<prompt>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			prompt := cmd.Args().First()
			if prompt == "" {
				return fmt.Errorf("a prompt is required")
			}
			config, err := configFromCommand(cmd)
			if err != nil {
				return err
			}

			stream, err := oai.NewClient(config).StreamChatCompletion(ctx, oai.ChatRequest{
				Model:    cmd.String("model"),
				Messages: []oai.ChatMessage{{Role: "user", Content: prompt}},
			})
			if err != nil {
				return err
			}
			defer stream.Close()

			for chunk, err := range stream.Events() {
				if err != nil {
					fmt.Fprintf(os.Stderr, "skipping event: %s\n", err)
					continue
				}
				if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != nil {
					fmt.Print(*chunk.Choices[0].Delta.Content)
				}
			}
			fmt.Println()
			return stream.Err()
		},
	}
}

func modelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "List the models the endpoint exposes",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			config, err := configFromCommand(cmd)
			if err != nil {
				return err
			}
			list, err := oai.NewClient(config).ListModels(ctx)
			if err != nil {
				return err
			}
			for _, model := range list.Data {
				fmt.Printf("%s\t%s\n", model.ID, model.OwnedBy)
			}
			return nil
		},
	}
}

func realtimeCommand() *cli.Command {
	return &cli.Command{
		Name:      "realtime",
		Usage:     "Run one text turn over a realtime session",
		ArgsUsage: "<prompt>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			prompt := cmd.Args().First()
			if prompt == "" {
				return fmt.Errorf("a prompt is required")
			}
			config, err := configFromCommand(cmd)
			if err != nil {
				return err
			}

			session, err := realtime.Dial(ctx, config, cmd.String("model"))
			if err != nil {
				return err
			}
			defer session.Close()

			err = session.Send(realtime.ConversationItemCreate{Item: realtime.ConversationItem{
				Type:    "message",
				Role:    "user",
				Content: []realtime.ContentPart{{Type: "input_text", Text: prompt}},
			}})
			if err != nil {
				return err
			}
			err = session.Send(realtime.ResponseCreate{Response: &realtime.ResponseConfig{Modalities: []string{"text"}}})
			if err != nil {
				return err
			}

			for event, err := range session.Events() {
				if err != nil {
					fmt.Fprintf(os.Stderr, "skipping event: %s\n", err)
					continue
				}
				switch event := event.(type) {
				case *realtime.ResponseOutputTextDelta:
					fmt.Print(event.Delta)
				case *realtime.ResponseDone:
					fmt.Println()
					return nil
				case *realtime.ErrorEvent:
					return fmt.Errorf("%s: %s", event.Error.Type, event.Error.Message)
				}
			}
			return session.Err()
		},
	}
}
