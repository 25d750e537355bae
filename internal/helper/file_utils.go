package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
)

func PathExistsOrStat(path string) (os.FileInfo, bool, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return stat, !os.IsNotExist(err), err
	} // end if
	return stat, true, err
} // end PathExistsOrStat()

func IsRegularFile(path string) bool {
	stat, bExists, err := PathExistsOrStat(path)
	return err == nil && bExists && stat.Mode().IsRegular()
} // end IsRegularFile()

func NewStructFromReader[T any](r io.Reader, out *T) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(out); err != nil {
		return err
	} // end if
	return nil
} // end NewStructFromReader()

func NewStructFromFile[T any](filename string, out *T) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	} // end if
	defer f.Close()
	if errDec := NewStructFromReader(f, out); errDec != nil {
		return fmt.Errorf("failed to decode ‘%s’: %w", filename, errDec)
	} // end if
	return nil
} // end NewStructFromFile()

// reads a JSON document named `name` out of `fsys`
func NewStructFromFS[T any](fsys fs.FS, name string, out *T) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	} // end if
	defer f.Close()
	if errDec := NewStructFromReader(f, out); errDec != nil {
		return fmt.Errorf("failed to decode ‘%s’: %w", name, errDec)
	} // end if
	return nil
} // end NewStructFromFS()
