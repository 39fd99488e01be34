// Package domain defines contracts and domain types for admission control.
//
// This package has no dependency on net/http or any concrete probe,
// queue, or pool implementation. The intent, as in a hexagonal split,
// is to keep the decision rules testable in isolation from HTTP and
// from infrastructure detail.
package domain
