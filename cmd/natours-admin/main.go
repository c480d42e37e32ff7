package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/redmonkez12/natours-api/cmd/natours-admin/ui"
	"github.com/redmonkez12/natours-api/internal/booking"
	"github.com/redmonkez12/natours-api/internal/config"
	"github.com/redmonkez12/natours-api/internal/database"
	"github.com/redmonkez12/natours-api/internal/logging"
	"github.com/redmonkez12/natours-api/internal/review"
	"github.com/redmonkez12/natours-api/internal/seed"
	"github.com/redmonkez12/natours-api/internal/tour"
	"github.com/redmonkez12/natours-api/internal/user"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "natours-admin",
		Short:         "Maintenance commands for the Natours API data stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Import tours, users and reviews from JSON fixtures",
		RunE:  runSeed,
	}
	seedCmd.Flags().String("dir", "dev-data", "Directory holding tours.json, users.json and reviews.json")
	seedCmd.Flags().Bool("purge", false, "Delete existing data before importing")

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every tour, user, review and booking",
		RunE:  runPurge,
	}
	purgeCmd.Flags().BoolP("yes", "y", false, "Skip confirmation prompt")

	adminCmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE:  runCreateAdmin,
	}
	adminCmd.Flags().String("name", "", "Display name")
	adminCmd.Flags().String("email", "", "Login email")
	adminCmd.Flags().String("password", "", "Password (prompted when omitted)")

	rootCmd.AddCommand(seedCmd, purgeCmd, adminCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

// stores holds open connections for one command run.
type stores struct {
	mongo    *mongo.Database
	postgres *bun.DB
	logger   *logging.Logger
}

// connect opens Mongo and, when withBookings is set, Postgres.
func connect(ctx context.Context, withBookings bool) (*stores, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	s := &stores{logger: logging.NewLogger(cfg.Server.IsDevelopment())}

	s.mongo, err = database.OpenMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	if withBookings {
		s.postgres, err = database.OpenPostgres(cfg.Database)
		if err != nil {
			s.close()
			return nil, err
		}
	}
	return s, nil
}

func (s *stores) close() {
	_ = s.mongo.Client().Disconnect(context.Background())
	if s.postgres != nil {
		s.postgres.Close()
	}
}

func (s *stores) importer() *seed.Importer {
	tours := tour.NewRepository(s.mongo)
	reviews := review.NewRepository(s.mongo)
	im := &seed.Importer{
		Tours:   tours,
		Users:   user.NewRepository(s.mongo),
		Reviews: reviews,
		Ratings: review.NewService(reviews, tours, s.logger),
		Logger:  s.logger,
	}
	if s.postgres != nil {
		im.Bookings = booking.NewRepository(s.postgres)
	}
	return im
}

func (s *stores) ensureIndexes(ctx context.Context) error {
	if err := user.NewRepository(s.mongo).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := tour.NewRepository(s.mongo).EnsureIndexes(ctx); err != nil {
		return err
	}
	return review.NewRepository(s.mongo).EnsureIndexes(ctx)
}

func runSeed(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("dir")
	purge, _ := cmd.Flags().GetBool("purge")
	ctx := cmd.Context()

	data, err := seed.Load(os.DirFS(dir))
	if err != nil {
		return err
	}

	s, err := connect(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	im := s.importer()
	if purge {
		c, err := im.Purge(ctx)
		if err != nil {
			return err
		}
		ui.PrintCounts("Deleted", c)
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	c, err := im.Import(ctx, data)
	if err != nil {
		return err
	}
	ui.PrintCounts("Imported", c)
	ui.PrintSuccess("Data successfully loaded!")
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	ctx := cmd.Context()

	if !yes {
		ok, err := ui.Confirm("Delete all data?", "Tours, users, reviews and bookings will be removed.")
		if err != nil {
			return fmt.Errorf("prompt cancelled: %w", err)
		}
		if !ok {
			ui.PrintHint("Aborted.")
			return nil
		}
	}

	s, err := connect(ctx, true)
	if err != nil {
		return err
	}
	defer s.close()

	c, err := s.importer().Purge(ctx)
	if err != nil {
		return err
	}
	ui.PrintCounts("Deleted", c)
	ui.PrintSuccess("Data successfully deleted!")
	return nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	in := &ui.AdminInput{}
	in.Name, _ = cmd.Flags().GetString("name")
	in.Email, _ = cmd.Flags().GetString("email")
	in.Password, _ = cmd.Flags().GetString("password")
	ctx := cmd.Context()

	if !in.Complete() {
		if err := ui.RunAdminForm(in); err != nil {
			return fmt.Errorf("form cancelled: %w", err)
		}
	}

	s, err := connect(ctx, false)
	if err != nil {
		return err
	}
	defer s.close()

	users := user.NewRepository(s.mongo)
	if err := users.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	u, err := seed.CreateAdmin(ctx, users, in.Name, in.Email, in.Password)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Admin %s created (id %s)", u.Email, u.ID.Hex()))
	return nil
}
