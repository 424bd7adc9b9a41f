package dispatch

import "errors"

// Selector picks the orders for one run: a single id, an explicit list,
// or everything currently Ready to Ship.
type Selector struct {
	orderIDs []string
	allReady bool
}

func One(orderID string) Selector { return Selector{orderIDs: []string{orderID}} }

func Many(orderIDs []string) Selector { return Selector{orderIDs: orderIDs} }

func AllReadyToShip() Selector { return Selector{allReady: true} }

func (s Selector) validate() error {
	if s.allReady {
		return nil
	}
	if len(s.orderIDs) == 0 {
		return errors.New("empty selector")
	}
	for _, id := range s.orderIDs {
		if id == "" {
			return errors.New("empty order id in selector")
		}
	}
	return nil
}
