//go:build !race

package authcore

// Work factor of 12 keeps verification in the tens of milliseconds on
// commodity hardware.
func passwordHashCost() int {
	return 12
}
