package rt

// resetInit lets each test take the process-wide Init.
func resetInit() { initialized.Store(false) }
