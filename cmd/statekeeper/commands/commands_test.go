package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/statekeeper/internal/state"
	"git.home.luguber.info/inful/statekeeper/internal/statefile"
)

func testCLI(t *testing.T) *CLI {
	t.Helper()
	return &CLI{File: filepath.Join(t.TempDir(), "desired_state.yml")}
}

func TestInitCmd_CreatesTemplate(t *testing.T) {
	root := testCLI(t)

	cmd := &InitCmd{}
	require.NoError(t, cmd.Run(nil, root))

	raw, err := os.ReadFile(root.File)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "automatically generated")
}

func TestInitCmd_IdempotentOnExistingFile(t *testing.T) {
	root := testCLI(t)

	setCmd := &SetCmd{Name: "api", Requirement: "^1.2.3"}
	require.NoError(t, setCmd.Run(nil, root))

	require.NoError(t, (&InitCmd{}).Run(nil, root))

	store, err := state.NewStore(statefile.New(root.File), nil, nil)
	require.NoError(t, err)
	require.Len(t, store.List(), 1, "init must not clobber existing content")
}

func TestSetCmd_PersistsRequirement(t *testing.T) {
	root := testCLI(t)

	cmd := &SetCmd{Name: "api", Requirement: "^1.2.3"}
	require.NoError(t, cmd.Run(nil, root))

	store, err := state.NewStore(statefile.New(root.File), nil, nil)
	require.NoError(t, err)
	list := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, "api", list[0].Name)
	assert.Equal(t, "^1.2.3", list[0].RequirementString())
}

func TestSetCmd_RejectsMalformedRequirement(t *testing.T) {
	root := testCLI(t)

	cmd := &SetCmd{Name: "api", Requirement: "not-a-range"}
	err := cmd.Run(nil, root)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestRemoveCmd_AbsentServiceIsNotFound(t *testing.T) {
	root := testCLI(t)

	err := (&RemoveCmd{Name: "ghost"}).Run(nil, root)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}

func TestRemoveCmd_RemovesTrackedService(t *testing.T) {
	root := testCLI(t)

	require.NoError(t, (&SetCmd{Name: "api", Requirement: "^1.2.3"}).Run(nil, root))
	require.NoError(t, (&RemoveCmd{Name: "api"}).Run(nil, root))

	store, err := state.NewStore(statefile.New(root.File), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, store.List())
}

func TestListCmd_RunsAgainstFreshFile(t *testing.T) {
	root := testCLI(t)
	require.NoError(t, (&ListCmd{}).Run(nil, root))
}
