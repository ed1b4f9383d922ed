package main

import (
	"context"
	"fmt"
	"log/slog"

	"notesapi/internal/auth"
	"notesapi/internal/service"
)

// Fixture is the seed file layout.
type Fixture struct {
	Users []SeedUser `json:"users"`
}

// SeedUser is a user with the notes they own.
type SeedUser struct {
	Username string     `json:"username"`
	Name     string     `json:"name"`
	Password string     `json:"password"`
	Notes    []SeedNote `json:"notes"`
}

// SeedNote is a note to create for its user.
type SeedNote struct {
	Content   string `json:"content"`
	Important bool   `json:"important"`
}

// Result counts what a seed run did.
type Result struct {
	UsersCreated  int
	UsersExisting int
	NotesCreated  int
}

func defaultFixture() Fixture {
	return Fixture{Users: []SeedUser{
		{
			Username: "root",
			Name:     "Superuser",
			Password: "salainen",
			Notes: []SeedNote{
				{Content: "HTML is easy", Important: false},
				{Content: "Browser can execute only JavaScript", Important: true},
			},
		},
		{
			Username: "mluukkai",
			Name:     "Matti Luukkainen",
			Password: "salainen",
			Notes: []SeedNote{
				{Content: "GET and POST are the most important methods of HTTP protocol", Important: true},
			},
		},
	}}
}

type seeder struct {
	users  service.UserService
	notes  service.NoteService
	logger *slog.Logger
}

// run registers missing users and creates notes only for users it created,
// so running it twice does not duplicate notes.
func (s *seeder) run(ctx context.Context, fixture Fixture) (Result, error) {
	var result Result
	for _, u := range fixture.Users {
		existing, err := s.users.FindByUsername(ctx, u.Username)
		if err != nil {
			return result, fmt.Errorf("lookup %s: %w", u.Username, err)
		}
		if existing != nil {
			s.logger.Info("user already present, skipping", "username", u.Username)
			result.UsersExisting++
			continue
		}

		user, err := s.users.Register(ctx, u.Username, u.Name, u.Password)
		if err != nil {
			return result, fmt.Errorf("register %s: %w", u.Username, err)
		}
		result.UsersCreated++

		identity := &auth.Identity{UserID: user.ID, Username: user.Username}
		for _, n := range u.Notes {
			if _, err := s.notes.Create(ctx, identity, n.Content, n.Important); err != nil {
				return result, fmt.Errorf("note for %s: %w", u.Username, err)
			}
			result.NotesCreated++
		}
	}
	return result, nil
}
