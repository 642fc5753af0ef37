package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	eventmodels "technovit/internal/event/models"
	"technovit/internal/platform/config"
	"technovit/internal/platform/logger"
	userservice "technovit/internal/user/service"
	"technovit/pkg/domain"
	dErrors "technovit/pkg/domain-errors"
)

type seedAccount struct {
	name  string
	email string
	role  domain.Role
	vit   bool
}

var seedAccounts = []seedAccount{
	{"Admin", "admin@technovit.local", domain.RoleAdmin, true},
	{"Super Coordinator", "super@technovit.local", domain.RoleSuperCoordinator, true},
	{"Event Coordinator", "coordinator@technovit.local", domain.RoleCoordinator, true},
	{"Registration Desk", "desk@technovit.local", domain.RoleRegistrationCoordinator, true},
	{"Student One", "student1@technovit.local", domain.RoleStudent, true},
	{"Student Two", "student2@technovit.local", domain.RoleStudent, false},
}

func newSeedCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo accounts and events in the configured store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.StoreMemory {
				return fmt.Errorf("seed needs a persistent store; set STORE_DRIVER=%s", config.StoreMongo)
			}
			log := logger.New(cfg.Environment, cfg.LogLevel)
			st, err := openStores(cmd.Context(), cfg.Store, log)
			if err != nil {
				return err
			}
			defer func() { _ = st.close(context.Background()) }()
			return seed(cmd.Context(), st, password, log)
		},
	}

	cmd.Flags().StringVar(&password, "password", "changeme123", "Password given to every seeded account")
	return cmd
}

func seed(ctx context.Context, st *stores, password string, log *slog.Logger) error {
	users := userservice.New(st.users, userservice.WithLogger(log))
	var coordinator domain.UserID
	for _, a := range seedAccounts {
		u, err := users.CreateUser(ctx, userservice.CreateUserRequest{
			Name: a.name, Email: a.email, Password: password, Role: a.role, IsVITian: a.vit,
		})
		switch {
		case dErrors.HasCode(err, dErrors.CodeConflict):
			if u, err = users.FindByEmail(ctx, a.email); err != nil {
				return fmt.Errorf("load %s: %w", a.email, err)
			}
			log.Info("account exists", "email", a.email)
		case err != nil:
			return fmt.Errorf("seed %s: %w", a.email, err)
		default:
			log.Info("account created", "email", a.email, "role", a.role.String())
		}
		if a.role == domain.RoleCoordinator {
			coordinator = u.ID
		}
	}

	existing, err := st.events.List(ctx, true)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	if len(existing) > 0 {
		log.Info("events already present, skipping", "count", len(existing))
		return nil
	}
	start := time.Now().AddDate(0, 1, 0).Truncate(24 * time.Hour)
	for _, ev := range demoEvents(start, coordinator) {
		if err := st.events.Insert(ctx, ev); err != nil {
			return fmt.Errorf("seed event %q: %w", ev.Name, err)
		}
		log.Info("event created", "name", ev.Name, "fee", ev.Fee)
	}
	return nil
}

func demoEvents(start time.Time, coordinator domain.UserID) []*eventmodels.Event {
	end := start.Add(48 * time.Hour)
	hackathon := &eventmodels.Event{
		ID: domain.NewEventID(), Name: "Hackathon", Description: "36 hour build sprint",
		Venue: "Main Auditorium", StartDate: &start, EndDate: &end, StartTime: "09:00", EndTime: "21:00",
		Fee: 500, GroupSizeMin: 2, GroupSizeMax: 4, RegistrationsOpen: true, IsPinned: true,
	}
	if !coordinator.IsNil() {
		hackathon.StudentCoordinators = []eventmodels.Coordinator{{ID: coordinator, Name: "Event Coordinator"}}
	}
	return []*eventmodels.Event{
		hackathon,
		{
			ID: domain.NewEventID(), Name: "Keynote", Description: "Opening talk",
			Venue: "Anna Auditorium", StartDate: &start, StartTime: "10:00",
			Fee: 0, GroupSizeMin: 1, GroupSizeMax: 1, RegistrationsOpen: true,
		},
		{
			ID: domain.NewEventID(), Name: "Robo Wars", Description: "Arena combat",
			Venue: "Open Air Theatre", StartDate: &end,
			Fee: 300, GroupSizeMin: 1, GroupSizeMax: 3,
		},
	}
}
