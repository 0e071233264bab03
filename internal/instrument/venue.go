package instrument

import "github.com/rickgao/barsync/internal/model"

// InferVenue derives the listing venue from a code's leading digit.
//
//	6       -> Shanghai
//	0, 3    -> Shenzhen
//	8, 4, 9 -> Beijing
//
// Anything else, including the empty code, is unknown.
func InferVenue(code string) model.Venue {
	if code == "" {
		return model.VenueUnknown
	}
	switch code[0] {
	case '6':
		return model.VenueShanghai
	case '0', '3':
		return model.VenueShenzhen
	case '8', '4', '9':
		return model.VenueBeijing
	default:
		return model.VenueUnknown
	}
}
