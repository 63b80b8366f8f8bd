package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mykana/wellness/internal/encryption"
	"github.com/mykana/wellness/internal/profile"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"

	keyEnv = "MYKANA_PROFILE_KEY"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	dbPath  string
	key     string
	verbose bool
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "profilectl",
		Short: "Derive and inspect the local patient profile",
		Long: `profilectl turns a completed onboarding questionnaire into a patient
profile and keeps it in a local SQLite file, the same way the app keeps it
on the device.

Available subcommands:
  derive   - Derive a profile from a questionnaire answers file
  show     - Print the stored profile
  greeting - Print the greeting for the stored profile
  clear    - Remove the stored profile`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				opts.logger = logger
			} else {
				opts.logger = zap.NewNop()
			}
			if opts.key == "" {
				opts.key = os.Getenv(keyEnv)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.dbPath, "db", "mykana.db", "SQLite file holding the local profile")
	root.PersistentFlags().StringVar(&opts.key, "key", "", "hex AES-256 key sealing the stored profile (default $"+keyEnv+")")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable development logging")

	root.AddCommand(
		newDeriveCmd(opts),
		newShowCmd(opts),
		newGreetingCmd(opts),
		newClearCmd(opts),
	)
	return root
}

func newDeriveCmd(opts *options) *cobra.Command {
	var (
		answersPath string
		save        bool
		output      string
	)

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a profile from a questionnaire answers file",
		Long: `Read the questionnaire answers as a JSON object keyed by field name and
print the derived profile. With --save the profile replaces the stored one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != outputJSON && output != outputYAML {
				return fmt.Errorf("unknown output format %q", output)
			}
			answers, err := readAnswers(answersPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			var p *profile.PatientProfile
			if save {
				err = withService(cmd.Context(), opts, func(svc profile.Service) error {
					p, err = svc.Complete(cmd.Context(), profile.LocalProfileKey, answers)
					return err
				})
				if err != nil {
					return err
				}
				opts.logger.Info("Saved profile", zap.String("id", p.ID), zap.String("db", opts.dbPath))
			} else {
				p = profile.NewDeriver().Derive(answers)
			}
			return writeProfile(cmd.OutOrStdout(), p, output)
		},
	}

	cmd.Flags().StringVarP(&answersPath, "answers", "a", "", "answers JSON file, - for stdin")
	cmd.Flags().BoolVar(&save, "save", false, "store the derived profile")
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "output format (json|yaml)")
	cmd.MarkFlagRequired("answers")
	return cmd
}

func newShowCmd(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), opts, func(svc profile.Service) error {
				p, err := svc.Get(cmd.Context(), profile.LocalProfileKey)
				if err != nil {
					return noProfile(err)
				}
				return writeProfile(cmd.OutOrStdout(), p, output)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "output format (json|yaml)")
	return cmd
}

func newGreetingCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "greeting",
		Short: "Print the greeting for the stored profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), opts, func(svc profile.Service) error {
				p, err := svc.Get(cmd.Context(), profile.LocalProfileKey)
				if err != nil {
					return noProfile(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), profile.Greeting(p))
				if hint := profile.LanguageStyleHint(p); hint != "" {
					fmt.Fprintln(cmd.OutOrStdout(), hint)
				}
				return nil
			})
		},
	}
}

func newClearCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), opts, func(svc profile.Service) error {
				if err := svc.Clear(cmd.Context(), profile.LocalProfileKey); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Profile cleared")
				return nil
			})
		},
	}
}

// withService opens the local store for the duration of fn.
func withService(ctx context.Context, opts *options, fn func(profile.Service) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var sealer profile.Sealer
	if opts.key != "" {
		keyring, err := encryption.NewService(opts.key)
		if err != nil {
			return fmt.Errorf("invalid profile key: %w", err)
		}
		sealer = keyring
	}

	store, err := profile.OpenSQLiteStore(ctx, opts.dbPath, sealer)
	if err != nil {
		return err
	}
	defer store.Close()

	opts.logger.Debug("Opened local profile store", zap.String("db", opts.dbPath), zap.Bool("sealed", sealer != nil))
	return fn(profile.NewService(nil, store, nil, nil))
}

func readAnswers(path string, stdin io.Reader) (profile.QuestionnaireAnswers, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}

	var answers profile.QuestionnaireAnswers
	if err := json.Unmarshal(data, &answers); err != nil {
		return nil, fmt.Errorf("failed to parse answers: %w", err)
	}
	return answers, nil
}

func writeProfile(w io.Writer, p *profile.PatientProfile, format string) error {
	switch format {
	case outputYAML:
		// Round-trip through JSON so YAML keys match the JSON field names.
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func noProfile(err error) error {
	if errors.Is(err, profile.ErrProfileNotFound) {
		return errors.New("no profile stored; run profilectl derive --save first")
	}
	return err
}
