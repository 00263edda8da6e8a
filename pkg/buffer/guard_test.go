package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWritePageGuardRoundTrip(t *testing.T) {
	bpm := newTestPool(t, 4, 2)

	g, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	require.NotNil(t, g)
	id := g.Page().ID

	wg := g.UpgradeWrite()
	wg.Page().Data[0] = 0x7
	wg.Drop()

	rg, err := bpm.FetchPageRead(id)
	require.NoError(t, err)
	require.Equal(t, byte(0x7), rg.Page().Data[0])
	rg.Drop()
}

func TestPageGuardDropIsIdempotent(t *testing.T) {
	bpm := newTestPool(t, 4, 2)
	g, err := bpm.NewPageGuarded()
	require.NoError(t, err)
	wg := g.UpgradeWrite()
	wg.Drop()
	wg.Drop() // must not double-unlock or double-unpin
}
