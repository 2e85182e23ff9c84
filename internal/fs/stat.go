package fs

import (
	"os"

	"github.com/justyntemme/multipane/internal/model"
)

// StatAttr reads size and modification time of path without following
// symlinks. Directories report size 0. A path that cannot be stat'ed
// (usually because it vanished) yields Failed with zero values.
func StatAttr(path string) model.Attr {
	info, err := os.Lstat(path)
	if err != nil {
		return model.Attr{Failed: true}
	}
	mt := info.ModTime()
	a := model.Attr{ModTime: &mt}
	if !info.IsDir() && info.Size() > 0 {
		a.Size = uint64(info.Size())
	}
	return a
}

// Exists reports whether path exists, without following a final symlink.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
