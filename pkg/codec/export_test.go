package codec

import "time"

// SetNow swaps the clock used for timestamps and returns a restore func.
func SetNow(f func() time.Time) func() {
	prev := nowFunc
	nowFunc = f
	return func() { nowFunc = prev }
}
