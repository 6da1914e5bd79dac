// Package persistence stores paired TV records.
//
// Records live in a single JSON file, by default
// ~/.lgtv/lgtv/config/config.json. Older tools wrote that file in three
// shapes: a single object, an array, or a map keyed by TV name. All three
// are read; writes always produce a pretty-printed array with sorted keys.
//
// The file holds pairing keys and is written with mode 0600.
package persistence
