package businessflow

import (
	"fmt"
	"sync"
)

// Selection mutations are serialized per customer/vendor scope so the single
// working selection and monotonic snapshot versions hold under concurrency.
var (
	selectionScopeMutexes sync.Map
)

func lockSelectionScope(customerID uint, vendorID string) func() {
	key := fmt.Sprintf("%d:%s", customerID, vendorID)
	val, _ := selectionScopeMutexes.LoadOrStore(key, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
