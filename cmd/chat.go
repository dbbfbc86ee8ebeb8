package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spigell/hh-screener/internal/screening"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	commandQuit   = "/quit"
	commandReset  = "/reset"
	commandUpload = "/upload"
)

var errChatExit = errors.New("exit requested")

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run an interactive screening conversation in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("session", "s", "", "session id to resume; a fresh one is generated when unset")
}

// chat is the interactive REPL for manual screening runs.
func chat(cmd *cobra.Command) {
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	orchestrator, _, err := buildOrchestrator(config, logger)
	if err != nil {
		logger.Fatal("building the screening core", zap.Error(err))
	}

	sessionID := cmd.Flag("session").Value.String()
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	logger.Info("starting interactive chat",
		zap.String("version", version),
		zap.String("session_id", sessionID),
	)
	fmt.Printf("Screening chat started (session %s). Commands: %s, %s, %s <file>\n",
		sessionID, commandQuit, commandReset, commandUpload)

	meta := jobMetadata(config)

	prompt := promptui.Prompt{Label: "you"}
	for {
		line, err := prompt.Run()
		if err != nil {
			logger.Info("exiting", zap.Error(err))
			return
		}

		if err := handleChatLine(orchestrator, sessionID, line, meta); err != nil {
			if errors.Is(err, errChatExit) {
				fmt.Println("Bye!")
				return
			}
			fmt.Printf("error: %v\n", err)
		}
	}
}

func handleChatLine(orchestrator *screening.Orchestrator, sessionID, line string, meta map[string]any) error {
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == commandQuit:
		return errChatExit

	case trimmed == commandReset:
		reply := orchestrator.ProcessMessage("goodbye", sessionID, meta)
		fmt.Printf("agent: %s\n", reply.Response)
		return nil

	case strings.HasPrefix(trimmed, commandUpload+" "):
		path := strings.TrimSpace(strings.TrimPrefix(trimmed, commandUpload))
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading document: %w", err)
		}

		result := orchestrator.HandleDocumentUpload(data, filepath.Base(path), "text/plain", sessionID)
		if !result.Success {
			return fmt.Errorf("document rejected: %s", strings.Join(result.Errors, "; "))
		}

		fmt.Printf("agent: resume processed, found %d skills (confidence %.2f)\n",
			len(result.Profile.Skills), result.Profile.ParseConfidence)
		for _, w := range result.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
		return nil

	default:
		reply := orchestrator.ProcessMessage(line, sessionID, meta)
		fmt.Printf("agent: %s\n", reply.Response)
		if len(reply.Metadata.SecurityFlags) > 0 {
			fmt.Printf("  [security: %s]\n", strings.Join(reply.Metadata.SecurityFlags, ", "))
		}
		return nil
	}
}
