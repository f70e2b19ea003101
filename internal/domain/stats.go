package domain

import "math"

// Statistics is a library-wide projection over the catalog and registry.
// It is computed on demand, never stored.
type Statistics struct {
	TotalBooks       int     `json:"totalBooks"`       // sum of owned copies
	UniqueTitles     int     `json:"uniqueTitles"`     // number of catalog entries
	BorrowedBooks    int     `json:"borrowedBooks"`    // copies currently on loan
	UtilizationRate  float64 `json:"utilizationRate"`  // percent of owned copies on loan, one decimal
	LowStockTitles   int     `json:"lowStockTitles"`   // titles with 0 < stock <= LowStockThreshold
	OutOfStockTitles int     `json:"outOfStockTitles"` // titles with stock == OutOfStockLevel
	ActiveBorrowers  int     `json:"activeBorrowers"`  // users holding at least one book
}

// ComputeStatistics projects statistics from a consistent snapshot.
func ComputeStatistics(books []*Book, users []*User) Statistics {
	var s Statistics
	s.UniqueTitles = len(books)

	for _, b := range books {
		s.TotalBooks += b.TotalCopies
		s.BorrowedBooks += b.ActiveBorrowCount()

		switch b.Availability() {
		case AvailabilityOutOfStock:
			s.OutOfStockTitles++
		case AvailabilityLowStock:
			s.LowStockTitles++
		}
	}

	for _, u := range users {
		if u.ActiveCount() > 0 {
			s.ActiveBorrowers++
		}
	}

	s.UtilizationRate = UtilizationRate(s.BorrowedBooks, s.TotalBooks)
	return s
}

// UtilizationRate returns borrowed/total as a percentage rounded to one
// decimal place, or 0 for an empty library.
func UtilizationRate(borrowed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(borrowed)/float64(total)*1000) / 10
}
