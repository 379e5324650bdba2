package cli

// ShortID is the id prefix shown in listings. Commands accept any unique
// prefix back.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
