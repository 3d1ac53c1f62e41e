package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		stock int
		want  Status
	}{
		{0, StatusOutOfStock},
		{1, StatusLowStock},
		{9, StatusLowStock},
		{10, StatusInStock},
		{120, StatusInStock},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DeriveStatus(tc.stock), "stock=%d", tc.stock)
	}
}

func TestDeriveStatusTotality(t *testing.T) {
	for stock := 0; stock <= 1000; stock++ {
		status := DeriveStatus(stock)
		require.Contains(t, []Status{StatusInStock, StatusLowStock, StatusOutOfStock}, status)
	}
}
