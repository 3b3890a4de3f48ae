package filtered

import "fmt"

// ConsistencyError is returned by NewStrict when a source's reported accepted
// count differs from the number of positions its selection accepts.
type ConsistencyError struct {
	Reported int
	Actual   int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inconsistent source: reported %d accepted entries, selection accepted %d", e.Reported, e.Actual)
}
