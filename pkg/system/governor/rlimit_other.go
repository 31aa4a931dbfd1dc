//go:build !linux

package governor

func initialBudget() int { return 512 }
