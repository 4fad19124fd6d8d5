package activity

import (
	"io"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/mergington/core"
)

var ErrDuplicateActivity = errors.New("activity defined more than once")

type (
	catalogFile struct {
		Activities []catalogEntry `yaml:"activities" validate:"required,min=1,dive"`
	}

	catalogEntry struct {
		Name            string   `yaml:"name" validate:"required,notblank"`
		Description     string   `yaml:"description"`
		Schedule        string   `yaml:"schedule"`
		MaxParticipants int      `yaml:"max_participants" validate:"gt=0"`
		Participants    []string `yaml:"participants" validate:"unique,dive,required"`
	}
)

// LoadCatalog decodes the YAML catalog definition read from `r`.
// Activities are returned in definition order.
func LoadCatalog(r io.Reader, validate *validator.Validate) ([]Activity, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Wrap(err, "decoding catalog")
	}
	if err := validate.Struct(file); err != nil {
		return nil, errors.Wrap(err, "validating catalog")
	}

	activities := make([]Activity, 0, len(file.Activities))
	seen := make(map[string]bool, len(file.Activities))
	for _, entry := range file.Activities {
		name := core.CleanString(entry.Name)
		if seen[name] {
			return nil, errors.Wrap(ErrDuplicateActivity, name)
		}
		seen[name] = true

		participants := make([]string, len(entry.Participants))
		copy(participants, entry.Participants)
		activities = append(activities, Activity{
			Name:            name,
			Description:     core.CleanString(entry.Description),
			Schedule:        core.CleanString(entry.Schedule),
			MaxParticipants: entry.MaxParticipants,
			Participants:    participants,
		})
	}
	return activities, nil
}

// LoadCatalogFile loads the catalog at `path` on disk, or the one embedded in `fsys` when `path` is empty.
func LoadCatalogFile(path string, fsys fs.FS, embeddedPath string, validate *validator.Validate) ([]Activity, error) {
	var (
		f   io.ReadCloser
		err error
	)
	if path != "" {
		f, err = os.Open(path)
	} else {
		f, err = fsys.Open(embeddedPath)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening catalog")
	}
	defer f.Close()
	return LoadCatalog(f, validate)
}
