package blueprint

import (
	"errors"
	"strings"
	"time"
)

const watchDateLayout = "2006-01-02 15:04:05"

// VideoList is the watch history of one donation reduced to video IDs.
type VideoList struct {
	IDs []string
	// Skipped counts rows without a /video/ link or, when a year is
	// requested, without a readable date.
	Skipped int
	// Excluded counts dated rows watched in another year.
	Excluded int
}

// WatchedVideoIDs returns the IDs of the videos in the watch history, in
// donation order. A year of 0 keeps every row. A donation without a watch
// history yields an empty list.
func (e *Extractor) WatchedVideoIDs(raw *RawDonation, year int) (VideoList, error) {
	var list VideoList

	activities, counts, err := e.decodeCategory(raw, categories[0])
	if errors.Is(err, errAbsent) {
		return list, nil
	}
	if err != nil {
		return list, &ExtractionError{BlueprintID: categories[0].id, Err: err}
	}
	list.Skipped = counts.skipped

	for _, a := range activities {
		video, ok := a.(WatchedVideo)
		if !ok {
			continue
		}

		if year > 0 {
			if video.Date == nil {
				list.Skipped++
				continue
			}
			watched, err := time.Parse(watchDateLayout, string(*video.Date))
			if err != nil {
				list.Skipped++
				continue
			}
			if watched.Year() != year {
				list.Excluded++
				continue
			}
		}

		id, ok := videoID(video.Link)
		if !ok {
			list.Skipped++
			continue
		}
		list.IDs = append(list.IDs, id)
	}

	return list, nil
}

// videoID takes the path segment after /video/, e.g.
// https://www.tiktokv.com/share/video/7339482/ yields 7339482.
func videoID(link *Text) (string, bool) {
	if link == nil {
		return "", false
	}
	_, rest, found := strings.Cut(string(*link), "/video/")
	if !found {
		return "", false
	}
	id, _, _ := strings.Cut(strings.Trim(rest, "/"), "/")
	if id == "" {
		return "", false
	}
	return id, true
}
