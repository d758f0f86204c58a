package main

import (
	"errors"
	"fmt"

	"github.com/mjelde/meetscribe/internal/bus"
	"github.com/mjelde/meetscribe/internal/config"
	"github.com/mjelde/meetscribe/internal/daemon"
	"github.com/mjelde/meetscribe/internal/deps"
	"github.com/mjelde/meetscribe/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	_ = rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "meetscribe",
	Short: "Live meeting transcription with speaker attribution",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		startCmd(),
		stopCmd(),
		statusCmd(),
		speakersCmd(),
		clearCmd(),
		transcriptCmd(),
		versionCmd(),
		shutdownCmd(),
		configureCmd(),
		doctorCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			d, err := daemon.New(manager)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a transcription session",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdRecord)
			if err != nil {
				return fmt.Errorf("failed to start session: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the session and wait for pending chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdFinish)
			if err != nil {
				return fmt.Errorf("failed to stop session: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get current session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdStatus)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func speakersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "speakers",
		Short: "List speakers seen in the current context",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdSpeakers)
			if err != nil {
				return fmt.Errorf("failed to list speakers: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget accumulated speaker context",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdClear)
			if err != nil {
				return fmt.Errorf("failed to clear speakers: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func transcriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcript",
		Short: "Print the transcript of the current or last session",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdTranscript)
			if err != nil {
				return fmt.Errorf("failed to fetch transcript: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Get protocol version",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdVersion)
			if err != nil {
				return fmt.Errorf("failed to get version: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func shutdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdQuit)
			if err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration setup",
		Long: `Interactive configuration wizard for meetscribe.
This will guide you through setting up:
- Transcription provider and API key (Google, OpenAI)
- Language and speaker diarization
- Audio source and session tuning
- Notification preferences`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg = config.DefaultConfig()
	} else if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration wizard error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := result.Config.Validate(); err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Println()

	showNextSteps()
	return nil
}

func showNextSteps() {
	fmt.Println("Next Steps:")
	fmt.Println("1. Start the daemon: meetscribe serve")
	fmt.Println("2. Begin a session: meetscribe start")
	fmt.Println("3. Follow along: meetscribe transcript")
	fmt.Println()

	configPath, _ := config.GetConfigPath()
	fmt.Printf("Config file location: %s\n", configPath)
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that required system tools are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := []struct {
				name     string
				status   deps.Status
				required bool
				hint     string
			}{
				{"pw-record", deps.CheckPwRecord(), true, "install pipewire-utils for audio capture"},
				{"pw-cli", deps.CheckPwCli(), false, "needed to capture system audio"},
				{"notify-send", deps.CheckNotifySend(), false, "needed for desktop notifications"},
			}

			missingRequired := false
			for _, c := range checks {
				if c.status.Installed {
					line := fmt.Sprintf("[x] %s (%s)", c.name, c.status.Path)
					if c.status.Version != "" {
						line += " " + c.status.Version
					}
					fmt.Println(line)
					continue
				}

				fmt.Printf("[ ] %s missing - %s\n", c.name, c.hint)
				if c.required {
					missingRequired = true
				}
			}

			if missingRequired {
				return fmt.Errorf("required dependencies are missing")
			}
			return nil
		},
	}
}
