package reminder

// Len exposes the number of tracked keys to the external test package.
func (k *KeyedMutex) Len() int { return k.size() }
