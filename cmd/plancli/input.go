package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/myrjola/pedalcoach/internal/training"
	"github.com/spf13/cobra"
)

type inputFlags struct {
	goalsPath      string
	activitiesPath string
	profilePath    string
	now            string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.goalsPath, "goals", "g", "", "JSON file with an array of goals (required)")
	cmd.Flags().StringVarP(&f.activitiesPath, "activities", "a", "", "JSON file with an array of activities")
	cmd.Flags().StringVarP(&f.profilePath, "profile", "p", "", "JSON file with the user profile")
	cmd.Flags().StringVar(&f.now, "now", "", "evaluate as of this RFC 3339 time instead of the current time")
	_ = cmd.MarkFlagRequired("goals")
}

type inputs struct {
	goals      []training.Goal
	activities []training.Activity
	profile    *training.Profile
	now        time.Time
}

func (f *inputFlags) load() (inputs, error) {
	in := inputs{goals: nil, activities: nil, profile: nil, now: time.Now().UTC()}
	if err := readJSON(f.goalsPath, &in.goals); err != nil {
		return inputs{}, err
	}
	if f.activitiesPath != "" {
		if err := readJSON(f.activitiesPath, &in.activities); err != nil {
			return inputs{}, err
		}
	}
	if f.profilePath != "" {
		var p training.Profile
		if err := readJSON(f.profilePath, &p); err != nil {
			return inputs{}, err
		}
		in.profile = &p
	}
	if f.now != "" {
		now, err := time.Parse(time.RFC3339, f.now)
		if err != nil {
			return inputs{}, fmt.Errorf("parse --now: %w", err)
		}
		in.now = now.UTC()
	}
	return in, nil
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err = json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
