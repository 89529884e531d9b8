package ml

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry(t *testing.T) {
	specs := []DeploymentSpec{linearSpec(), pipelineSpec(), {
		Name:   "tree",
		Model:  "testdata/charges_tree.json",
		Scheme: "onehot",
	}}
	r, err := LoadRegistry(context.Background(), specs, "pipeline")
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())

	d, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "pipeline", d.Name())

	d, err = r.Get("tree")
	require.NoError(t, err)
	est, err := d.Estimate(context.Background(), referenceInput())
	require.NoError(t, err)
	assert.Equal(t, 5000.0, est.Charge)

	names := make([]string, 0, 3)
	for _, d := range r.List() {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"linear", "pipeline", "tree"}, names)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownDeployment)
}

func TestLoadRegistryFailsOnAnyBadDeployment(t *testing.T) {
	bad := linearSpec()
	bad.Name = "bad"
	bad.Model = "testdata/missing.json"
	_, err := LoadRegistry(context.Background(), []DeploymentSpec{pipelineSpec(), bad}, "")
	assert.Error(t, err)
}

func TestNewRegistryRules(t *testing.T) {
	_, err := NewRegistry("")
	assert.Error(t, err)

	d, err := LoadDeployment(linearSpec())
	require.NoError(t, err)

	_, err = NewRegistry("", d, d)
	assert.ErrorContains(t, err, "duplicate")

	_, err = NewRegistry("other", d)
	assert.ErrorIs(t, err, ErrUnknownDeployment)

	r, err := NewRegistry("", d)
	require.NoError(t, err)
	assert.Equal(t, "linear", r.DefaultName())
}

func TestRegistryClose(t *testing.T) {
	r, err := LoadRegistry(context.Background(), []DeploymentSpec{linearSpec()}, "")
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Get("linear")
	assert.ErrorIs(t, err, ErrRegistryClosed)
	assert.Empty(t, r.List())
	assert.Equal(t, 0, r.Len())
}

func TestRegistryGetRacesClose(t *testing.T) {
	r, err := LoadRegistry(context.Background(), []DeploymentSpec{linearSpec(), treeSpec(), pipelineSpec()}, "linear")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				d, err := r.Get(name)
				if err != nil {
					if !errors.Is(err, ErrRegistryClosed) {
						errs <- err
					}
					return
				}
				// a deployment handed out before Close stays usable
				if _, err := d.Estimate(context.Background(), referenceInput()); err != nil {
					errs <- err
					return
				}
				r.List()
				r.Len()
			}
		}([]string{"linear", "tree", "pipeline", ""}[i%4])
	}
	require.NoError(t, r.Close())
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
	_, err = r.Get("linear")
	assert.ErrorIs(t, err, ErrRegistryClosed)
}
