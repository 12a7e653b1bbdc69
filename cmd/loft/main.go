// Package main provides the Loft CLI.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/loft-ml/loft/lora"
)

const version = "v0.1.0-dev"

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	root := &cobra.Command{
		Use:           "loft",
		Short:         "Loft - low-rank adapter injection for Go module trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Loft %s\n", version)
		},
	})

	var inFeatures, outFeatures, targets int
	var asJSON bool
	inspect := &cobra.Command{
		Use:   "inspect <config-file>",
		Short: "Validate an adapter config and report its parameter budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := lora.LoadConfig(args[0])
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			m := cfg.AsMap(cfg.InferenceMode)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(m); err != nil {
					return err
				}
			} else {
				keys := make([]string, 0, len(m))
				for k := range m {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Printf("%-18s %v\n", k, m[k])
				}
			}

			if inFeatures > 0 && outFeatures > 0 {
				per, err := adapterParams(cfg, inFeatures, outFeatures)
				if err != nil {
					return err
				}
				total := per * int64(targets)
				log.Info().
					Int("in_features", inFeatures).
					Int("out_features", outFeatures).
					Int("target_layers", targets).
					Int64("params_per_layer", per).
					Int64("params_total", total).
					Msg("trainable adapter parameter budget")
			}
			return nil
		},
	}
	inspect.Flags().IntVar(&inFeatures, "in", 0, "input feature count of the targeted dense layers")
	inspect.Flags().IntVar(&outFeatures, "out", 0, "output feature count of the targeted dense layers")
	inspect.Flags().IntVar(&targets, "targets", 1, "number of dense layers the selector will match")
	inspect.Flags().BoolVar(&asJSON, "json", false, "print the effective config as JSON")
	root.AddCommand(inspect)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// adapterParams counts the trainable parameters one adapter layer adds for
// the given dense dimensions.
func adapterParams(cfg lora.Config, in, out int) (int64, error) {
	if cfg.R == 0 {
		return 0, nil
	}
	if in%lora.Heads != 0 || out%lora.Heads != 0 {
		return 0, fmt.Errorf("feature counts (%d, %d) must be divisible by the head count (%d)",
			in, out, lora.Heads)
	}

	inHead := int64(in / lora.Heads)
	outHead := int64(out / lora.Heads)
	r := int64(cfg.R)

	n := r*inHead + outHead*r
	if cfg.Router {
		routerOut := r
		if cfg.RouterMixer {
			routerOut = r * r
		}
		n += routerOut * inHead
	}
	return n, nil
}
