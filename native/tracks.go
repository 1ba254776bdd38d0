package native

import (
	"github.com/darkhz/vidbridge/bridge"
	"github.com/darkhz/vidbridge/player"
	"golang.org/x/text/language"
)

// setTrack selects an audio or subtitle track by language tag, track
// id or label.
func (v *ViewController) setTrack(selector string, audio bool) bridge.Result {
	if selector == "" {
		return bridge.Failure(bridge.CodeNotSupported, "malformed track selector")
	}

	snap := v.handle.Snapshot()

	tracks := snap.AudioTracks
	if !audio {
		tracks = snap.SubtitleTracks
	}
	if len(tracks) == 0 {
		if audio {
			tracks = v.handle.Engine().AudioTracks()
		} else {
			tracks = v.handle.Engine().SubtitleTracks()
		}
	}

	track, ok := MatchTrack(tracks, selector)
	if !ok {
		return bridge.Failure(bridge.CodeNotSupported, "no track matches "+selector)
	}

	var err error
	notice := player.NoticeAudioTrack
	if audio {
		err = v.handle.Engine().SetAudioTrack(track.ID)
	} else {
		err = v.handle.Engine().SetSubtitleTrack(track.ID)
		notice = player.NoticeSubtitleTrack
	}
	if err != nil {
		return bridge.Failure(bridge.CodeLoadError, err.Error())
	}

	v.handle.Notify(player.Notification{
		Type:   notice,
		Track:  &track,
		Tracks: tracks,
	})

	return bridge.Success()
}

// MatchTrack finds the track best matching the selector. Exact id and
// label matches win; otherwise the selector is treated as a BCP-47
// language tag and matched against the tracks' languages.
func MatchTrack(tracks []bridge.Track, selector string) (bridge.Track, bool) {
	for _, t := range tracks {
		if t.ID == selector || (t.Label != "" && t.Label == selector) {
			return t, true
		}
	}

	desired, err := language.Parse(selector)
	if err != nil {
		return bridge.Track{}, false
	}

	var tagged []bridge.Track
	var tags []language.Tag

	for _, t := range tracks {
		if t.Language == "" {
			continue
		}

		tag, err := language.Parse(t.Language)
		if err != nil {
			continue
		}

		tagged = append(tagged, t)
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return bridge.Track{}, false
	}

	matcher := language.NewMatcher(tags)

	_, index, confidence := matcher.Match(desired)
	if confidence == language.No {
		return bridge.Track{}, false
	}

	return tagged[index], true
}
