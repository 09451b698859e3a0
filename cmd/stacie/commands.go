package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vaultsandbox/stacie"
	"github.com/vaultsandbox/stacie/internal/crypto"
)

func newRootCommand(cfg Config) *cobra.Command {
	a := &app{streams: cfg}

	root := &cobra.Command{
		Use:               "stacie",
		Short:             "Derive STACIE credentials and seal realm data",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.envFile, "env-file", "", "load STACIE_* variables from this .env file")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&a.passwordFile, "password-file", "", `read the password from this file ("-" for stdin)`)

	root.AddCommand(
		newRoundsCommand(a),
		newRandomCommand(a, "salt", "Generate a random 128-byte salt", stacie.GenerateSalt),
		newRandomCommand(a, "nonce", "Generate a random 128-byte session nonce", stacie.GenerateNonce),
		newRandomCommand(a, "shard", "Generate a random 64-byte realm shard", stacie.GenerateShard),
		newDeriveCommand(a),
		newTokenCommand(a),
		newVerifyCommand(a),
		newEncryptCommand(a),
		newDecryptCommand(a),
		newStatsCommand(a),
		newVersionCommand(a),
	)
	return root
}

// withEngine runs fn with an open engine and closes it afterwards.
func (a *app) withEngine(fn func(*stacie.Engine) error) error {
	engine, err := a.open()
	if err != nil {
		return err
	}
	defer a.close()
	return fn(engine)
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.streams.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) writeLine(s string) error {
	_, err := fmt.Fprintln(a.streams.Stdout, s)
	return err
}

// decodeFlag decodes a base64 flag value, naming the flag on failure.
func decodeFlag(name, value string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("--%s is required", name)
	}
	data, err := crypto.DecodeBase64(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return data, nil
}

// credentialFlags are shared by every command that derives a credential.
type credentialFlags struct {
	username string
	salt     string
}

func (f *credentialFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "user name")
	cmd.Flags().StringVar(&f.salt, "salt", "", "base64url salt")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("salt")
}

// derive reads the password and derives the credential for f.
func (a *app) derive(engine *stacie.Engine, f *credentialFlags) (*stacie.Credential, error) {
	salt, err := decodeFlag("salt", f.salt)
	if err != nil {
		return nil, err
	}
	password, err := a.readPassword(engine)
	if err != nil {
		return nil, err
	}
	defer password.Close()

	return engine.DeriveCredential([]byte(f.username), password.Bytes(), salt)
}

func newRoundsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rounds",
		Short: "Print the hashing rounds used for a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(func(engine *stacie.Engine) error {
				password, err := a.readPassword(engine)
				if err != nil {
					return err
				}
				defer password.Close()

				rounds, err := engine.Rounds(password.Bytes())
				if err != nil {
					return err
				}
				return a.writeJSON(struct {
					Rounds uint32 `json:"rounds"`
				}{rounds})
			})
		},
	}
}

func newRandomCommand(a *app, name, short string, generate func() ([]byte, error)) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			value, err := generate()
			if err != nil {
				return err
			}
			return a.writeLine(crypto.ToBase64URL(value))
		},
	}
}

// credentialOutput is the JSON form of a derived credential. The keys are
// only filled in with --reveal.
type credentialOutput struct {
	Username          string `json:"username"`
	Rounds            uint32 `json:"rounds"`
	VerificationToken string `json:"verification_token"`
	MasterKey         string `json:"master_key,omitempty"`
	PasswordKey       string `json:"password_key,omitempty"`
}

func newDeriveCommand(a *app) *cobra.Command {
	var (
		flags  credentialFlags
		reveal bool
	)
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a credential and print its verification token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(func(engine *stacie.Engine) error {
				c, err := a.derive(engine, &flags)
				if err != nil {
					return err
				}
				defer c.Close()

				out := credentialOutput{
					Username:          c.Username,
					Rounds:            c.Rounds,
					VerificationToken: crypto.ToBase64URL(c.VerificationToken.Bytes()),
				}
				if reveal {
					out.MasterKey = crypto.ToBase64URL(c.MasterKey.Bytes())
					out.PasswordKey = crypto.ToBase64URL(c.PasswordKey.Bytes())
				}
				return a.writeJSON(out)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&reveal, "reveal", false, "also print the master and password keys")
	return cmd
}

func newTokenCommand(a *app) *cobra.Command {
	var (
		flags credentialFlags
		nonce string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Derive an ephemeral token for a session nonce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nonceBytes, err := decodeFlag("nonce", nonce)
			if err != nil {
				return err
			}
			return a.withEngine(func(engine *stacie.Engine) error {
				c, err := a.derive(engine, &flags)
				if err != nil {
					return err
				}
				defer c.Close()

				token, err := engine.EphemeralToken(c, nonceBytes)
				if err != nil {
					return err
				}
				defer token.Close()

				return a.writeJSON(struct {
					Token string `json:"token"`
				}{crypto.ToBase64URL(token.Bytes())})
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&nonce, "nonce", "", "base64url session nonce")
	_ = cmd.MarkFlagRequired("nonce")
	return cmd
}

func newVerifyCommand(a *app) *cobra.Command {
	var (
		flags credentialFlags
		token string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a password against a stored verification token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			salt, err := decodeFlag("salt", flags.salt)
			if err != nil {
				return err
			}
			tokenBytes, err := decodeFlag("token", token)
			if err != nil {
				return err
			}
			return a.withEngine(func(engine *stacie.Engine) error {
				password, err := a.readPassword(engine)
				if err != nil {
					return err
				}
				defer password.Close()

				c, err := engine.Authenticate([]byte(flags.username), password.Bytes(), salt, tokenBytes)
				authenticated := err == nil
				if authenticated {
					c.Close()
				} else if !errors.Is(err, stacie.ErrAuthenticationFailed) {
					return err
				}

				if werr := a.writeJSON(struct {
					Authenticated bool `json:"authenticated"`
				}{authenticated}); werr != nil {
					return werr
				}
				return err
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&token, "token", "", "base64url verification token")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

// realmFlags select the realm for encrypt and decrypt.
type realmFlags struct {
	credentialFlags
	realm string
	shard string
	input string
}

func (f *realmFlags) register(cmd *cobra.Command) {
	f.credentialFlags.register(cmd)
	cmd.Flags().StringVar(&f.realm, "realm", "", "realm name")
	cmd.Flags().StringVar(&f.shard, "shard", "", "base64url realm shard")
	cmd.Flags().StringVarP(&f.input, "input", "i", "-", `input file ("-" for stdin)`)
	_ = cmd.MarkFlagRequired("realm")
	_ = cmd.MarkFlagRequired("shard")
}

// openRealm derives the credential and opens the realm. The credential is
// released once the realm key exists.
func (a *app) openRealm(engine *stacie.Engine, f *realmFlags) (*stacie.Realm, error) {
	shard, err := decodeFlag("shard", f.shard)
	if err != nil {
		return nil, err
	}
	c, err := a.derive(engine, &f.credentialFlags)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return engine.OpenRealm(c, f.realm, shard)
}

func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		if a.passwordFile == "-" {
			return nil, errors.New("--password-file and --input cannot both read stdin")
		}
		return io.ReadAll(a.streams.Stdin)
	}
	return os.ReadFile(path)
}

func newEncryptCommand(a *app) *cobra.Command {
	var (
		flags  realmFlags
		serial uint16
	)
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Seal input into a base64url realm envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plaintext, err := a.readInput(flags.input)
			if err != nil {
				return err
			}
			defer clear(plaintext)

			return a.withEngine(func(engine *stacie.Engine) error {
				realm, err := a.openRealm(engine, &flags)
				if err != nil {
					return err
				}
				defer realm.Close()

				envelope, err := realm.Encrypt(serial, plaintext)
				if err != nil {
					return err
				}
				return a.writeLine(crypto.ToBase64URL(envelope))
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().Uint16Var(&serial, "serial", 0, "envelope serial number")
	return cmd
}

func newDecryptCommand(a *app) *cobra.Command {
	var flags realmFlags
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Open a base64url realm envelope and write the plaintext",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			encoded, err := a.readInput(flags.input)
			if err != nil {
				return err
			}
			envelope, err := crypto.DecodeBase64(string(encoded))
			if err != nil {
				return fmt.Errorf("decode envelope: %w", err)
			}

			return a.withEngine(func(engine *stacie.Engine) error {
				realm, err := a.openRealm(engine, &flags)
				if err != nil {
					return err
				}
				defer realm.Close()

				plaintext, err := realm.Decrypt(envelope)
				if err != nil {
					return err
				}
				defer plaintext.Close()

				_, err = a.streams.Stdout.Write(plaintext.Bytes())
				return err
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// statsOutput reports the configured allocator.
type statsOutput struct {
	Mode      stacie.ArenaMode `json:"mode"`
	Arena     bool             `json:"arena"`
	Total     int              `json:"total_bytes,omitempty"`
	Allocated int              `json:"allocated_bytes"`
	Count     int              `json:"allocations"`
	Free      int              `json:"free_bytes,omitempty"`
	Chunks    int              `json:"chunks,omitempty"`
}

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Start the configured allocator and print its usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withEngine(func(engine *stacie.Engine) error {
				out := statsOutput{Mode: a.config.Arena.Mode}
				if stats, ok := engine.Stats(); ok {
					out.Arena = true
					out.Total = stats.Total
					out.Allocated = stats.Allocated
					out.Count = stats.Count
					out.Free = stats.Free
					out.Chunks = stats.Chunks
				}
				return a.writeJSON(out)
			})
		},
	}
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.writeLine("stacie " + version)
		},
	}
}
