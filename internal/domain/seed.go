package domain

import "time"

// SeedBooks returns the starter catalog installed on an empty store.
// Ids "1" through "5" are reserved for it; created books start at FirstBookID.
func SeedBooks(now time.Time) []*Book {
	seed := []struct {
		id, title, author, isbn string
		stock, total            int
		imageURL                string
	}{
		{"1", "The Great Gatsby", "F. Scott Fitzgerald", "9780743273565", 3, 5,
			"https://images-na.ssl-images-amazon.com/images/I/71FTb9X6wsL.jpg"},
		{"2", "To Kill a Mockingbird", "Harper Lee", "9780061120084", 0, 4,
			"https://m.media-amazon.com/images/I/81aY1lxk+9L._AC_UF1000,1000_QL80_.jpg"},
		{"3", "1984", "George Orwell", "9780451524935", 2, 6,
			"https://m.media-amazon.com/images/I/71kxa1-0mfL._AC_UF1000,1000_QL80_.jpg"},
		{"4", "Pride and Prejudice", "Jane Austen", "9780141439518", 5, 5,
			"https://images-na.ssl-images-amazon.com/images/S/compressed.photo.goodreads.com/books/1320399351i/1885.jpg"},
		{"5", "The Catcher in the Rye", "J.D. Salinger", "9780316769488", 1, 3,
			"https://m.media-amazon.com/images/I/8125BDk3l9L._AC_UF1000,1000_QL80_.jpg"},
	}

	books := make([]*Book, 0, len(seed))
	for _, s := range seed {
		b := NewBook(s.id, s.title, s.author, s.isbn, s.total, s.imageURL, now)
		b.Stock = s.stock
		books = append(books, b)
	}
	return books
}
