// Command mutorere plays Mu Torere in the terminal, hot seat or against a
// random opponent.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/jaminalder/mu-torere/internal/config"
	"github.com/jaminalder/mu-torere/internal/domain"
	"github.com/jaminalder/mu-torere/internal/term"
)

func main() {
	var (
		botSide string
		seed    uint64
	)
	cfg, err := config.Load("mutorere", os.Args[1:], nil, func(fs *flag.FlagSet) {
		fs.StringVar(&botSide, "bot", "", "let the computer play this side (A or B)")
		fs.Uint64Var(&seed, "seed", uint64(time.Now().UnixNano()), "random seed for the computer player")
	})
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	log := cfg.Logger(os.Stderr)

	g, err := domain.NewWithConfig(cfg.Game)
	if err != nil {
		log.Fatal().Err(err).Msg("new game")
	}
	opts := []term.Option{term.WithLogger(log)}
	if botSide != "" {
		side, err := domain.ParseOccupant(botSide)
		if err != nil || !side.IsPlayer() {
			log.Fatal().Str("bot", botSide).Msg("bot side must be A or B")
		}
		opts = append(opts, term.WithBot(side, seed))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := term.New(os.Stdin, os.Stdout, g, opts...).Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("terminal session")
	}
}
