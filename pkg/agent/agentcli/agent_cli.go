// Package agentcli is the command line surface of the bridge agent.
package agentcli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hapticbridge/hapticbridge/internal/configsvc"
	"github.com/hapticbridge/hapticbridge/internal/inputsvc/linux"
	"github.com/hapticbridge/hapticbridge/internal/mapstore"
	"github.com/hapticbridge/hapticbridge/internal/sinkio/chair"
	"github.com/hapticbridge/hapticbridge/pkg/agent"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "hapticbridge"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

func NewRootCmd(configDir string) *cobra.Command {
	cfg := agent.Config{
		DataDir:       filepath.Join(configDir, "data"),
		MappingConfig: filepath.Join(configDir, "mappings.yml"),
		DeviceConfig:  filepath.Join(configDir, "devices.yml"),
	}
	var (
		vestSink = "null"
		vestURL  string
		padSink  = "null"
	)
	rootCmd := &cobra.Command{
		Use:   "hapticbridge",
		Short: "Haptic bridge agent",
		Long:  `The haptic bridge agent translates game inputs into haptic vest and motion chair stimulus.`,
	}
	vests, pads := agent.NewRegistries(zap.NewNop())
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&cfg.MappingConfig, "mapping-config", cfg.MappingConfig, "mapping config file")
	rootCmd.PersistentFlags().StringVar(&cfg.DeviceConfig, "device-config", cfg.DeviceConfig, "device config file")
	rootCmd.PersistentFlags().StringVar(&vestSink, "vest-sink", vestSink,
		fmt.Sprintf("vest sink type (%s)", strings.Join(vests.IDs(), ", ")))
	rootCmd.PersistentFlags().StringVar(&vestURL, "vest-url", vestURL, "vest runtime websocket url")
	rootCmd.PersistentFlags().StringVar(&padSink, "pad-sink", padSink,
		fmt.Sprintf("pad sink type (%s)", strings.Join(pads.IDs(), ", ")))

	finishConfig := func() error {
		cfg.Vest = agent.SinkConfig{Type: vestSink}
		if vestURL != "" {
			raw, err := json.Marshal(map[string]string{"url": vestURL})
			if err != nil {
				return err
			}
			cfg.Vest.Config = raw
		}
		cfg.Pad = agent.SinkConfig{Type: padSink}
		return nil
	}

	rootCmd.AddCommand(NewRun(&cfg, finishConfig))
	rootCmd.AddCommand(NewListDevices())
	rootCmd.AddCommand(NewValidate(&cfg))
	rootCmd.AddCommand(NewShowState(&cfg))
	rootCmd.AddCommand(NewChair())
	return rootCmd
}

func NewRun(cfg *agent.Config, finishConfig func() error) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bridge agent",
		Long:  `Runs the bridge daemon: captures input devices and dispatches mapped stimulus until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := finishConfig(); err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return err
			}
			a, err := agent.NewAgent(*cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
}

func NewListDevices() *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "List input devices",
		Long:  `List readable evdev input devices and their detected kinds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := linux.ListDevices()
			if err != nil {
				return err
			}
			jsonB, err := json.MarshalIndent(devices, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
}

// loadState parses and validates the mapping config into a store.
func loadState(cfg *agent.Config) (*mapstore.Store, error) {
	file, err := configsvc.ReadFile(cfg.MappingConfig, mapstore.MappingFile{})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", cfg.MappingConfig, err)
	}
	snapshot, err := mapstore.LoadMappingFile(file)
	if err != nil {
		return nil, err
	}
	store := mapstore.NewStore()
	if err := store.ImportState(snapshot); err != nil {
		return nil, err
	}
	return store, nil
}

func NewValidate(cfg *agent.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the mapping config",
		Long:  `Parses the mapping config and reports the first validation error, if any.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadState(cfg)
			if err != nil {
				return err
			}
			state := store.ExportState()
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d presets, %d bindings\n",
				len(state.Presets), len(state.Bindings))
			return nil
		},
	}
}

func NewShowState(cfg *agent.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show-state",
		Short: "Print the normalized mapping state",
		Long:  `Parses the mapping config and prints the normalized snapshot as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadState(cfg)
			if err != nil {
				return err
			}
			jsonB, err := json.MarshalIndent(store.ExportState(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
}

func NewChair() *cobra.Command {
	var cfg chair.Config
	cmd := &cobra.Command{
		Use:   "chair [on|off|park|lights-off]",
		Short: "Send a motion chair utility command",
		Long:  `Sends a power, park or lights command to the motion chair over its vendor protocol.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			client := chair.New(log.Named("chair"), cfg)
			defer client.Close()
			switch args[0] {
			case "on":
				return client.PowerOn()
			case "off":
				return client.PowerOff()
			case "park":
				return client.Park()
			case "lights-off":
				return client.LightsOff()
			default:
				return fmt.Errorf("unknown chair command %q", args[0])
			}
		},
	}
	cmd.Flags().StringVar(&cfg.Address, "address", "127.0.0.1", "chair address")
	cmd.Flags().IntVar(&cfg.TCPPort, "tcp-port", 0, "chair tcp port (default 50020)")
	cmd.Flags().IntVar(&cfg.UDPPort, "udp-port", 0, "chair udp port (default 50010)")
	return cmd
}
