package pointers

func String(v string) *string { return &v }
