package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/makistry/meshview/internal/assistant"
	"github.com/makistry/meshview/internal/credential"
	"github.com/makistry/meshview/internal/logger"
	"github.com/makistry/meshview/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// APIKeyEnv seeds the credential store when it holds no key
const APIKeyEnv = "MESHVIEW_API_KEY"

var suggestContext string

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Chat with the CadQuery assistant",
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Ask the assistant; without a message an interactive session starts",
	RunE:  runChat,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <design file or ->",
	Short: "Ask for up to four design improvements",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggest,
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the stored assistant API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Store the API key; reads stdin when no key is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentials()
		if err != nil {
			return err
		}
		var key string
		if len(args) == 1 {
			key = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && err != io.EOF {
				return err
			}
			key = line
		}
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("empty key")
		}
		if err := creds.Set(cmd.Context(), key); err != nil {
			return err
		}
		if cfg.Assistant.CredentialStore == "" || cfg.Assistant.CredentialStore == "memory" {
			cmd.PrintErrln("Warning: the memory credential store does not outlive this process; set assistant.credential_store to file or redis")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Key stored")
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored API key, masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentials()
		if err != nil {
			return err
		}
		key, err := creds.Get(cmd.Context())
		if err != nil {
			return err
		}
		if key == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "No key stored")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), credential.Mask(key))
		return nil
	},
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentials()
		if err != nil {
			return err
		}
		if err := creds.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Key cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(assistantCmd)
	assistantCmd.AddCommand(chatCmd, suggestCmd, keyCmd)
	keyCmd.AddCommand(keySetCmd, keyShowCmd, keyClearCmd)
	suggestCmd.Flags().StringVar(&suggestContext, "context", "", "One-line description of the design")
}

// credentials opens the configured store
func credentials() (credential.Provider, error) {
	return credential.FromConfig(cfg.Assistant, logger.Component("credential"))
}

// newAssistant opens the credential store, seeding it from the environment
// when it is empty
func newAssistant(cmd *cobra.Command) (*assistant.Client, error) {
	creds, err := credentials()
	if err != nil {
		return nil, err
	}
	if env := os.Getenv(APIKeyEnv); env != "" {
		if key, err := creds.Get(cmd.Context()); err == nil && key == "" {
			if err := creds.Set(cmd.Context(), env); err != nil {
				return nil, err
			}
		}
	}

	opts := assistant.OptionsFromConfig(cfg.Assistant, creds)
	opts.Logger = logger.Log
	opts.Recorder = metrics.NewCollector("meshview", prometheus.NewRegistry(), logger.Log)
	return assistant.New(opts), nil
}

func runChat(cmd *cobra.Command, args []string) error {
	client, err := newAssistant(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if len(args) > 0 {
		reply, err := client.Chat(ctx, strings.Join(args, " "), nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	}

	var history []assistant.Message
	scanner := bufio.NewScanner(cmd.InOrStdin())
	fmt.Fprint(cmd.OutOrStdout(), "> ")
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			fmt.Fprint(cmd.OutOrStdout(), "> ")
			continue
		}
		reply, err := client.Chat(ctx, input, history)
		if err != nil {
			cmd.PrintErrln(err)
		} else {
			history = append(history,
				assistant.Message{Role: assistant.RoleUser, Content: input},
				assistant.Message{Role: assistant.RoleAssistant, Content: reply})
			fmt.Fprintln(cmd.OutOrStdout(), reply)
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), "> ")
	}
	return scanner.Err()
}

func runSuggest(cmd *cobra.Command, args []string) error {
	var (
		design []byte
		err    error
	)
	if args[0] == "-" {
		design, err = io.ReadAll(cmd.InOrStdin())
	} else {
		design, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	client, err := newAssistant(cmd)
	if err != nil {
		return err
	}
	items, err := client.Suggestions(cmd.Context(), string(design), suggestContext)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No suggestions")
		return nil
	}
	for i, item := range items {
		fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, item)
	}
	return nil
}
