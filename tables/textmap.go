package tables

import (
	"io/fs"
	"strconv"
)

// TrimTextMap keeps only the text map entries some display item refers to.
func TrimTextMap(fsys fs.FS) (map[string]string, error) {
	var displayItems []displayItemEntry
	if err := load(fsys, DISPLAY_ITEM_FILE, &displayItems); err != nil {
		return nil, err
	} // end if
	textMap := map[string]string{}
	if err := load(fsys, TEXT_MAP_FILE, &textMap); err != nil {
		return nil, err
	} // end if
	wanted := make(map[string]struct{}, len(displayItems))
	for _, item := range displayItems {
		wanted[strconv.FormatUint(item.NameTextMapHash, 10)] = struct{}{}
	} // end for
	trimmed := map[string]string{}
	for hash, text := range textMap {
		if _, has := wanted[hash]; has {
			trimmed[hash] = text
		} // end if
	} // end for
	return trimmed, nil
} // end TrimTextMap()
