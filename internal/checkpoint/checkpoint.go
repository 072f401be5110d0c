package checkpoint

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var checkpointName = regexp.MustCompile(`^ckpt_(\d+)\.yaml$`)

// Store persists training state snapshots under a directory, keeping at most
// maxToKeep of the newest ones.
type Store struct {
	fs        afero.Fs
	dir       string
	maxToKeep int
}

func NewStore(fs afero.Fs, dir string, maxToKeep int) (*Store, error) {
	if maxToKeep <= 0 {
		return nil, errors.Errorf("checkpoint retention must be positive, got %d", maxToKeep)
	}
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create checkpoint directory %s", dir)
	}
	return &Store{fs: fs, dir: dir, maxToKeep: maxToKeep}, nil
}

// Save writes state as the checkpoint for epoch and prunes older checkpoints
// past the retention limit.
func (s *Store) Save(epoch int, state interface{}) error {
	out, err := yaml.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "failed to serialize checkpoint state")
	}
	name := path.Join(s.dir, fmt.Sprintf("ckpt_%d.yaml", epoch))
	if err := afero.WriteFile(s.fs, name, out, 0644); err != nil {
		return errors.Wrapf(err, "failed to write checkpoint %s", name)
	}
	return s.prune()
}

// Latest loads the newest checkpoint into the into pointer, returning its
// epoch. ok is false when no checkpoint exists.
func (s *Store) Latest(into interface{}) (epoch int, ok bool, err error) {
	epochs, err := s.epochs()
	if err != nil {
		return 0, false, err
	}
	if len(epochs) == 0 {
		return 0, false, nil
	}
	epoch = epochs[len(epochs)-1]
	name := path.Join(s.dir, fmt.Sprintf("ckpt_%d.yaml", epoch))
	contents, err := afero.ReadFile(s.fs, name)
	if err != nil {
		return 0, false, errors.Wrapf(err, "failed to read checkpoint %s", name)
	}
	if err := yaml.Unmarshal(contents, into); err != nil {
		return 0, false, errors.Wrapf(err, "failed to parse checkpoint %s", name)
	}
	return epoch, true, nil
}

func (s *Store) epochs() ([]int, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list checkpoint directory %s", s.dir)
	}
	var epochs []int
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		match := checkpointName.FindStringSubmatch(info.Name())
		if match == nil {
			continue
		}
		epoch, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		epochs = append(epochs, epoch)
	}
	sort.Ints(epochs)
	return epochs, nil
}

func (s *Store) prune() error {
	epochs, err := s.epochs()
	if err != nil {
		return err
	}
	if len(epochs) <= s.maxToKeep {
		return nil
	}
	for _, epoch := range epochs[:len(epochs)-s.maxToKeep] {
		name := path.Join(s.dir, fmt.Sprintf("ckpt_%d.yaml", epoch))
		if err := s.fs.Remove(name); err != nil {
			return errors.Wrapf(err, "failed to remove checkpoint %s", name)
		}
	}
	return nil
}
