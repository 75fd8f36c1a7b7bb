package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPanelGroupsAndSums(t *testing.T) {
	panel := BuildPanel("producto", "producto_id", []PanelRow{
		{Year: 2024, Month: 1, Key: "7", Quantity: 10},
		{Year: 2024, Month: 1, Key: "7", Quantity: 5},
		{Year: 2024, Month: 3, Key: "7", Quantity: 20},
		{Year: 2024, Month: 2, Key: "7", Quantity: 8},
		{Year: 2024, Month: 1, Key: "9", Quantity: 1},
		{Year: 0, Month: 1, Key: "9", Quantity: 99}, // invalid year
	})

	require.Len(t, panel.Series, 2)
	seven := panel.Series["7"]
	require.Len(t, seven, 3)
	assert.Equal(t, 15.0, seven[0].Quantity)
	assert.Equal(t, []string{"2024-01", "2024-02", "2024-03"},
		[]string{seven[0].Period, seven[1].Period, seven[2].Period})
	assert.Equal(t, 1.0, panel.Series["9"][0].Quantity)
}

func TestPanelKeysDeterministic(t *testing.T) {
	panel := BuildPanel("cliente", "usuario_id", []PanelRow{
		{Year: 2024, Month: 1, Key: "30", Quantity: 1},
		{Year: 2024, Month: 1, Key: "2", Quantity: 1},
		{Year: 2024, Month: 1, Key: "10", Quantity: 1},
	})
	assert.Equal(t, []string{"10", "2", "30"}, panel.Keys())
}

func TestTopKeysByVolume(t *testing.T) {
	panel := BuildPanel("producto", "producto_id", []PanelRow{
		{Year: 2024, Month: 1, Key: "a", Quantity: 10},
		{Year: 2024, Month: 2, Key: "a", Quantity: 5},
		{Year: 2024, Month: 1, Key: "b", Quantity: 50},
		{Year: 2024, Month: 1, Key: "c", Quantity: 20},
		{Year: 2024, Month: 1, Key: "d", Quantity: 20},
	})

	assert.Equal(t, []string{"b", "c", "d"}, panel.TopKeys(3))
	assert.Equal(t, []string{"b", "c", "d", "a"}, panel.TopKeys(10))
}
