package widget

import "github.com/EvanJ0hnson/Carty/pkg/contracts"

func eventType(action Action) string {
	switch action {
	case ActionAdd:
		return contracts.EventItemAdded
	case ActionRemove:
		return contracts.EventItemRemoved
	case ActionIncrease:
		return contracts.EventItemIncreased
	case ActionDecrease:
		return contracts.EventItemDecreased
	}
	return contracts.EventStateSynced
}
