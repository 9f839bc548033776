package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegate/internal/app"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
)

var enrollOpts struct {
	dir       string
	id        string
	name      string
	birthDate string
	add       bool
}

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll an identity from a directory of pose images",
	Long: `Reads every .jpg, .jpeg and .png file of --dir in name order, extracts one
embedding per image and stores them under --id. With --add the images are
appended to an existing identity instead.`,
	RunE: runEnroll,
}

func init() {
	f := enrollCmd.Flags()
	f.StringVar(&enrollOpts.dir, "dir", "", "Directory with the pose images")
	f.StringVar(&enrollOpts.id, "id", "", "External ID of the identity")
	f.StringVar(&enrollOpts.name, "name", "", "Display name")
	f.StringVar(&enrollOpts.birthDate, "birth-date", "", "Birth date (YYYY-MM-DD)")
	f.BoolVar(&enrollOpts.add, "add", false, "Append the images to an existing identity")
	_ = enrollCmd.MarkFlagRequired("dir")
	_ = enrollCmd.MarkFlagRequired("id")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	images, err := loadImages(enrollOpts.dir)
	if err != nil {
		return err
	}

	var birthDate *time.Time
	if enrollOpts.birthDate != "" {
		d, err := time.Parse(time.DateOnly, enrollOpts.birthDate)
		if err != nil {
			return fmt.Errorf("invalid --birth-date: %w", err)
		}
		birthDate = &d
	}

	a, err := buildApp(ctx, app.Options{})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if enrollOpts.add {
		added, err := a.Enrollment.AddImages(ctx, enrollOpts.id, images)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "Added %d embeddings to %s\n", len(added), enrollOpts.id)
		return err
	}

	identity, err := a.Enrollment.Enroll(ctx, service.EnrollRequest{
		ExternalID: enrollOpts.id,
		Name:       enrollOpts.name,
		BirthDate:  birthDate,
		Images:     images,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "Enrolled %s (%s) with %d embeddings\n",
		identity.ExternalID, identity.ID, len(identity.Embeddings))
	return err
}

// loadImages reads the image files of dir sorted by name
func loadImages(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no .jpg or .png images in %s", dir)
	}
	sort.Strings(names)

	images := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		images = append(images, data)
	}
	return images, nil
}
