//go:build windows

package fs

import (
	"syscall"
	"unsafe"
)

var (
	kernel32         = syscall.NewLazyDLL("kernel32.dll")
	getLogicalDrives = kernel32.NewProc("GetLogicalDrives")
	getDriveTypeW    = kernel32.NewProc("GetDriveTypeW")
	getVolumeInfoW   = kernel32.NewProc("GetVolumeInformationW")
)

const (
	driveUnknown   = 0
	driveNoRootDir = 1
	driveRemovable = 2
	driveRemote    = 4
	driveCDROM     = 5
)

// drivePaths returns "X:\" for every drive letter in the logical drive mask.
// GetLogicalDrives does not touch the media, so this never blocks.
func drivePaths() []string {
	var paths []string
	mask, _, _ := getLogicalDrives.Call()
	for i := 0; i < 26; i++ {
		if mask&(1<<uint(i)) != 0 {
			paths = append(paths, string(rune('A'+i))+":\\")
		}
	}
	return paths
}

// listRoots may block on disconnected network shares or empty optical
// drives while reading volume labels; callers run it off the UI path.
func listRoots() []Root {
	var roots []Root
	for _, path := range drivePaths() {
		letter := path[:2]
		pathPtr, _ := syscall.UTF16PtrFromString(path)
		driveType, _, _ := getDriveTypeW.Call(uintptr(unsafe.Pointer(pathPtr)))
		if driveType == driveUnknown || driveType == driveNoRootDir {
			continue
		}

		label := letter
		volumeName := make([]uint16, 256)
		ret, _, _ := getVolumeInfoW.Call(
			uintptr(unsafe.Pointer(pathPtr)),
			uintptr(unsafe.Pointer(&volumeName[0])),
			256,
			0, 0, 0, 0, 0,
		)
		if ret != 0 {
			if name := syscall.UTF16ToString(volumeName); name != "" {
				label = name + " (" + letter + ")"
			}
		}
		if label == letter {
			switch driveType {
			case driveRemovable:
				label = "Removable (" + letter + ")"
			case driveCDROM:
				label = "CD/DVD (" + letter + ")"
			case driveRemote:
				label = "Network (" + letter + ")"
			}
		}
		roots = append(roots, Root{Label: label, Path: path})
	}
	return roots
}
