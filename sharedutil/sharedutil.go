package sharedutil

import "github.com/roceb/sonicrust/backend/mediaprovider"

func MapSlice[T any, U any](ts []T, f func(T) U) []U {
	if ts == nil {
		return nil
	}
	result := make([]U, len(ts))
	for i, t := range ts {
		result[i] = f(t)
	}
	return result
}

func FindTrackByID(id string, tracks []mediaprovider.Track) *mediaprovider.Track {
	for i := range tracks {
		if id == tracks[i].ID {
			return &tracks[i]
		}
	}
	return nil
}
