package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/inkpress/scribe/internal/config"
	"github.com/inkpress/scribe/internal/initials"
)

// InitialsCmd implements the 'initials' command. It pre-generates assets for
// letters before any post needs them, useful for warming the cache.
type InitialsCmd struct {
	Letters string `short:"l" required:"" help:"Letters to generate, as 'ABC' or 'a,b,c'"`
	Output  string `short:"o" help:"Output directory (overrides config output_dir)"`
}

func (i *InitialsCmd) Run(_ *Global, cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("no OpenAI API key configured: set OPENAI_API_KEY or openai_api_key in %s", cli.Config)
	}

	letters := initials.ParseLetters(i.Letters)
	if len(letters) == 0 {
		return fmt.Errorf("no letters to generate in %q", i.Letters)
	}

	out := cfg.OutputDir
	if i.Output != "" {
		out = i.Output
	}
	cache := initials.NewCache(out, initials.NewOpenAIGenerator(cfg.OpenAIAPIKey))
	generated, failed, err := cache.Ensure(ctx, letters)
	if err != nil {
		return err
	}

	fmt.Printf("Generated %d initial(s), %d already cached, %d failed\n",
		len(generated), len(letters)-len(generated)-failed, failed)
	if failed > 0 {
		return fmt.Errorf("%d initial(s) failed to generate", failed)
	}
	return nil
}
