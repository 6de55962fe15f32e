package profile

import (
	"bytes"
	"fmt"

	"github.com/Octogonapus/NetBenchmark/target"
)

// The file uperf is pointed at, relative to the run's working directory. Two runs sharing a
// working directory must not overlap.
const FileName = "profile.xml"

// WriteFile renders p and writes it to path on t, deleting any stale copy first.
func WriteFile(t target.Target, path string, p *Profile) error {
	buf, err := Marshal(p)
	if err != nil {
		return err
	}

	err = Remove(t, path)
	if err != nil {
		return err
	}

	err = t.CopyFileTo(bytes.NewReader(buf), path)
	if err != nil {
		return fmt.Errorf("writing profile to %s failed: %w", path, err)
	}
	return nil
}

func Remove(t target.Target, path string) error {
	err := t.RemoveFile(path)
	if err != nil {
		return fmt.Errorf("removing profile %s failed: %w", path, err)
	}
	return nil
}
