// Copyright (c) 2026 MediaMeter. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package savedsearch

import "context"

// # Saved Search Data Access

// Repository defines the data access contract for saved searches.
type Repository interface {

	/*
		Create persists a new saved search.

		Returns:
		  - error: a conflict wrapping the unique violation when the
		    shortcode is taken
	*/
	Create(context context.Context, search *SavedSearch) error

	/*
		List returns saved searches, newest first, and the total count.

		Parameters:
		  - context: context.Context
		  - limit: int
		  - offset: int
	*/
	List(context context.Context, limit, offset int) ([]*SavedSearch, int, error)

	// FindByShortcode retrieves one saved search or a not-found error.
	FindByShortcode(context context.Context, shortcode string) (*SavedSearch, error)

	// Delete removes a saved search or returns a not-found error.
	Delete(context context.Context, shortcode string) error
}
