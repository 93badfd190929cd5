package cli

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"qr-hunt-service/internal/config"
	"qr-hunt-service/internal/token"
	"github.com/spf13/cobra"
)

// NewTokensCmd generates the signed level tokens that get printed as QR
// codes: one token per level, written to a JSON file.
func NewTokensCmd(configPath *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Generate signed QR level tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateTokens(*configPath, out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "tokens.json", "output file")
	return cmd
}

type tokenEntry struct {
	Level    int    `json:"level"`
	Token    string `json:"token"`
	IssuedAt int64  `json:"issuedAt"`
}

func generateTokens(configPath, out string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Game.Secret == "" {
		return fmt.Errorf("game secret not configured")
	}
	levelCount := cfg.Game.LevelCount
	if levelCount == 0 {
		levelCount = 10
	}

	codec := token.NewCodec(cfg.Game.Secret, 0)
	entries := make([]tokenEntry, 0, levelCount)
	for level := 1; level <= levelCount; level++ {
		entries = append(entries, tokenEntry{
			Level:    level,
			Token:    codec.Issue(level, fmt.Sprintf("Q%d", level)),
			IssuedAt: time.Now().UnixMilli(),
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	log.Printf("generated %s with %d tokens", out, len(entries))
	return nil
}
