package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pflege/pflege/internal/domain/identity"
)

// seedFile is the YAML fixture format read by the seed command.
//
//	admins:
//	  - {username: admin, name: Verwaltung, birthdate: "1970-01-01"}
//	mitarbeiter:
//	  - {username: anna, name: Anna Becker, birthdate: "1985-04-12"}
//	patients:
//	  - {username: erika, name: Erika Muster, birthdate: "1940-02-03", room: "12", location: Station A}
type seedFile struct {
	Admins      []seedPerson  `yaml:"admins"`
	Mitarbeiter []seedPerson  `yaml:"mitarbeiter"`
	Patients    []seedPatient `yaml:"patients"`
}

type seedPerson struct {
	Username  string `yaml:"username"`
	Name      string `yaml:"name"`
	Birthdate string `yaml:"birthdate"`
}

type seedPatient struct {
	seedPerson `yaml:",inline"`
	Room       string `yaml:"room"`
	Location   string `yaml:"location"`
}

type seedSummary struct {
	Created int
	Skipped int
}

func loadSeedFile(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeed(raw)
}

func parseSeed(raw []byte) (*seedFile, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// apply creates every entry. Existing usernames are skipped so a seed file
// can be applied more than once.
func (f *seedFile) apply(ctx context.Context, svc *identity.Service) (seedSummary, error) {
	var sum seedSummary
	record := func(kind, username string, err error) error {
		switch {
		case err == nil:
			sum.Created++
		case errors.Is(err, identity.ErrUsernameTaken):
			sum.Skipped++
		default:
			return fmt.Errorf("seed %s %q: %w", kind, username, err)
		}
		return nil
	}

	for _, p := range f.Admins {
		err := svc.CreateAdmin(ctx, &identity.Admin{Username: p.Username, Name: p.Name, Birthdate: p.Birthdate})
		if err := record("admin", p.Username, err); err != nil {
			return sum, err
		}
	}
	for _, p := range f.Mitarbeiter {
		err := svc.CreateMitarbeiter(ctx, &identity.Mitarbeiter{Username: p.Username, Name: p.Name, Birthdate: p.Birthdate})
		if err := record("mitarbeiter", p.Username, err); err != nil {
			return sum, err
		}
	}
	for _, p := range f.Patients {
		err := svc.CreatePatient(ctx, &identity.Patient{
			Username:  p.Username,
			Name:      p.Name,
			Birthdate: p.Birthdate,
			Room:      p.Room,
			Location:  p.Location,
		})
		if err := record("patient", p.Username, err); err != nil {
			return sum, err
		}
	}
	return sum, nil
}
