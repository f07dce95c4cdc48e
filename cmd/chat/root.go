package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("campus")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:          "chat",
		Short:        "Talk to the campus assistant from the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return repl(cmd.Context(), clientFrom(v), v.GetString("provider"), os.Stdin, cmd.OutOrStdout())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("server", "http://localhost:8080", "assistant server URL")
	flags.String("token", "", "bearer token (or CAMPUS_TOKEN)")
	flags.String("provider", "", "tenant to talk to (server default when empty)")
	flags.Duration("timeout", 95*time.Second, "request timeout")
	_ = v.BindPFlags(flags)

	rootCmd.AddCommand(
		newHealthCmd(v),
		newHistoryCmd(v),
		newMessagesCmd(v),
		newCleanupCmd(v),
	)
	return rootCmd
}

func clientFrom(v *viper.Viper) *client {
	return newClient(v.GetString("server"), v.GetString("token"), v.GetDuration("timeout"))
}

func newHealthCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := clientFrom(v).Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", h["service"], h["status"])
			return nil
		},
	}
}

func newHistoryCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List your conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printHistory(cmd.Context(), clientFrom(v), cmd.OutOrStdout())
		},
	}
}

func newMessagesCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "messages <chat-id>",
		Short: "Print the transcript of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msgs, err := clientFrom(v).Messages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range msgs {
				if m.FromAgent {
					fmt.Fprintf(out, "\033[36m[%s]\033[0m %s\n", m.Category, m.Content)
				} else {
					fmt.Fprintf(out, "> %s\n", m.Content)
				}
			}
			return nil
		},
	}
}

func newCleanupCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <chat-id>",
		Short: "Make the assistant forget a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := clientFrom(v).Cleanup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (sesiones activas: %d)\n", res.Message, res.ActiveSessions)
			return nil
		},
	}
}

func printHistory(ctx context.Context, c *client, out io.Writer) error {
	convs, err := c.History(ctx)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Fprintln(out, "No tienes conversaciones.")
		return nil
	}
	for _, conv := range convs {
		fmt.Fprintf(out, "  %s  %s\n", conv.ID, conv.Title)
	}
	return nil
}

// repl reads messages from in until EOF or /salir. Local commands start
// with a slash; anything else is sent to the assistant.
func repl(ctx context.Context, c *client, provider string, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintln(out, "Asistente del campus")
	fmt.Fprintln(out, "Comandos: /nuevo, /historial, /limpiar, /salir")
	fmt.Fprintln(out, "---")

	var chatID string
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/salir", "exit", "quit":
			fmt.Fprintln(out, "¡Hasta pronto!")
			return nil
		case "/nuevo":
			chatID = ""
			fmt.Fprintln(out, "Nueva conversación.")
			continue
		case "/historial":
			if err := printHistory(ctx, c, out); err != nil {
				printError("%v", err)
			}
			continue
		case "/limpiar":
			if chatID == "" {
				fmt.Fprintln(out, "No hay conversación activa.")
				continue
			}
			res, err := c.Cleanup(ctx, chatID)
			if err != nil {
				printError("%v", err)
				continue
			}
			fmt.Fprintln(out, res.Message)
			chatID = ""
			continue
		}

		reply, err := c.Chat(ctx, chatID, provider, input)
		if err != nil {
			printError("%v", err)
			continue
		}
		chatID = reply.ChatID
		fmt.Fprintf(out, "\033[36m[%s]\033[0m %s\n", reply.Category, reply.Reply)
	}
}
