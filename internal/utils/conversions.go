package utils

// ToStringSlice keeps the string elements of a decoded JSON array and drops the rest.
func ToStringSlice(slice []any) []string {
	stringSlice := make([]string, 0, len(slice))
	for _, v := range slice {
		if s, ok := v.(string); ok {
			stringSlice = append(stringSlice, s)
		}
	}
	return stringSlice
}
