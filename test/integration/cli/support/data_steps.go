package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/homest/internal/correspondence"
	"github.com/MeKo-Tech/homest/internal/synth"
)

// fixtureSeed keeps generated scenarios reproducible.
const fixtureSeed = 42

// writeDataset generates a synthetic set and saves it under name, choosing
// the format from the extension.
func (testCtx *TestContext) writeDataset(name string, count int, outlierFraction float64, seed uint64) error {
	cfg := synth.DefaultConfig()
	cfg.Count = count
	cfg.OutlierFraction = outlierFraction
	cfg.Seed = seed

	gen, err := synth.NewGenerator(cfg)
	if err != nil {
		return err
	}
	ds, err := gen.Generate()
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", name, err)
	}

	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	truth := ds.Truth
	if err := correspondence.Save(path, &correspondence.Set{Pts1: ds.Pts1, Pts2: ds.Pts2, Truth: &truth}); err != nil {
		return err
	}
	testCtx.Datasets[name] = ds
	return nil
}

func (testCtx *TestContext) aCorrespondenceFileWithOutliers(name string, count, outlierPercent int) error {
	return testCtx.writeDataset(name, count, float64(outlierPercent)/100, fixtureSeed)
}

func (testCtx *TestContext) correspondenceFilesIn(n int, dir string) error {
	for i := range n {
		name := filepath.Join(dir, fmt.Sprintf("scene_%02d.json", i))
		if err := testCtx.writeDataset(name, 100, 0.3, uint64(fixtureSeed+i)); err != nil { //nolint:gosec // small index
			return err
		}
	}
	return nil
}

// theEstimateShouldFindTheInliersOf checks the reported inlier count against
// the generated ground truth of a file.
func (testCtx *TestContext) theEstimateShouldFindTheInliersOf(name string) error {
	ds, ok := testCtx.Datasets[name]
	if !ok {
		return fmt.Errorf("no generated dataset named %s", name)
	}
	data, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	return fieldEquals(data, "num_inliers", strconv.Itoa(len(ds.Inliers)))
}

func (testCtx *TestContext) theEstimateShouldBeWithinOfTheTrueHomography(tolerance float64) error {
	data, err := testCtx.outputJSON()
	if err != nil {
		return err
	}
	val, err := lookupField(data, "truth_error")
	if err != nil {
		return err
	}
	truthErr, ok := val.(float64)
	if !ok {
		return fmt.Errorf("truth_error is not a number: %v", val)
	}
	if truthErr > tolerance {
		return fmt.Errorf("truth error %g exceeds %g", truthErr, tolerance)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldHoldCorrespondences(name string, n int) error {
	set, err := correspondence.Load(testCtx.Path(name))
	if err != nil {
		return err
	}
	if set.Len() != n {
		return fmt.Errorf("%s holds %d correspondences, expected %d", name, set.Len(), n)
	}
	return nil
}

// RegisterDataSteps registers correspondence fixture step definitions.
func (testCtx *TestContext) RegisterDataSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a correspondence file "([^"]*)" with (\d+) points and (\d+)% outliers$`,
		testCtx.aCorrespondenceFileWithOutliers)
	sc.Step(`^(\d+) correspondence files in "([^"]*)"$`, testCtx.correspondenceFilesIn)
	sc.Step(`^the estimate should find the inliers of "([^"]*)"$`, testCtx.theEstimateShouldFindTheInliersOf)
	sc.Step(`^the estimate should be within ([0-9.eE+-]+) of the true homography$`,
		testCtx.theEstimateShouldBeWithinOfTheTrueHomography)
	sc.Step(`^the file "([^"]*)" should hold (\d+) correspondences$`, testCtx.theFileShouldHoldCorrespondences)
}
