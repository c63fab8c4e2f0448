package xdata

import "os"

// StoreFile stores root into the file at path, creating or truncating it.
func StoreFile(path string, root *Record, opts ...Option) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Store(f, root, opts...)
}

// LoadFile loads the xdata stream stored at path.
func LoadFile(path string, opts ...Option) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f, opts...)
}
