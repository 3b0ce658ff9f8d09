package store_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/fuse/store"
	"github.com/ceyewan/fuse/testkit"
)

func TestEtcdStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping etcd integration test in short mode")
	}
	conn := testkit.GetEtcdConnector(t)
	st, err := store.NewEtcd(conn)
	require.NoError(t, err)

	exerciseStore(t, st, fmt.Sprintf("fuse-test:%d", time.Now().UnixNano()))
}
