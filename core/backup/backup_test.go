package backup

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AvaProtocol/aa-keyring/core/testutil"
)

func TestPeriodicBackupLifecycle(t *testing.T) {
	db := testutil.TestMustDB()
	defer testutil.DestroyDB(db)

	service := NewService(testutil.GetLogger(), db, t.TempDir())

	require.NoError(t, service.StartPeriodicBackup(time.Hour))
	assert.True(t, service.Running())

	assert.Error(t, service.StartPeriodicBackup(time.Hour), "starting twice")

	service.StopPeriodicBackup()
	assert.False(t, service.Running())

	// no-op when stopped
	service.StopPeriodicBackup()

	assert.Error(t, service.StartPeriodicBackup(0))
}

func TestBackupAndRestore(t *testing.T) {
	db := testutil.TestMustDB()
	defer testutil.DestroyDB(db)

	require.NoError(t, db.Set([]byte("w:01HX"), []byte(`{"admin":"0xabc"}`)))
	require.NoError(t, db.Set([]byte("c:11155111"), []byte(`{"bundlerUrl":"https://b"}`)))

	service := NewService(testutil.GetLogger(), db, t.TempDir())
	backupFile, err := service.PerformBackup()
	require.NoError(t, err)

	info, err := os.Stat(backupFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	restored := testutil.TestMustDB()
	defer testutil.DestroyDB(restored)
	require.NoError(t, Restore(context.Background(), restored, backupFile))

	v, err := restored.GetKey([]byte("w:01HX"))
	require.NoError(t, err)
	assert.Equal(t, `{"admin":"0xabc"}`, string(v))

	keys, err := restored.ListKeys("c:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"c:11155111"}, keys)
}

func TestRestoreMissingFile(t *testing.T) {
	db := testutil.TestMustDB()
	defer testutil.DestroyDB(db)

	err := Restore(context.Background(), db, "/does/not/exist")
	assert.ErrorContains(t, err, "failed to open backup file")
}
