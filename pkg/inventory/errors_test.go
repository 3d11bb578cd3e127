package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&ValidationError{Reason: "unit price must be greater than zero"}, "unit price must be greater than zero"},
		{&NotFoundError{Kind: "product", ID: 42}, "product 42 not found"},
		{&NotFoundError{Kind: "order", ID: 7}, "order 7 not found"},
		{&OutOfStockError{Product: "Widget"}, `product "Widget" is out of stock`},
		{&InsufficientStockError{Product: "Widget", Requested: 10, Available: 5}, `requested 10 of "Widget" but only 5 available`},
		{&AlreadyCancelledError{OrderID: 3}, "order 3 is already cancelled"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Error())
	}
}

func TestSnapshotIDAssignment(t *testing.T) {
	var s Snapshot
	assert.Equal(t, 1, s.nextProductID())
	assert.Equal(t, 1, s.nextOrderID())

	s.Products = []Product{{ID: 3}, {ID: 1}}
	s.Orders = []Order{{ID: 9}}
	assert.Equal(t, 4, s.nextProductID())
	assert.Equal(t, 10, s.nextOrderID())
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	s := Snapshot{
		Products: []Product{{ID: 1, Stock: 5}},
		Orders:   []Order{{ID: 1, Status: StatusActive}},
	}
	c := s.Clone()
	c.Products[0].Stock = 0
	c.Orders[0].Status = StatusCancelled

	assert.Equal(t, 5, s.Products[0].Stock)
	assert.Equal(t, StatusActive, s.Orders[0].Status)
}
