package setuppose

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
)

type keyframe struct {
	time    float32
	values  [4]float32
	stepped bool
}

type timelineKind int

const (
	timelineRotate timelineKind = iota
	timelineTranslate
	timelineScale
	timelineColor
)

type curveTimeline struct {
	kind   timelineKind
	target int
	keys   []keyframe
}

type attachmentKey struct {
	time float32
	// name is nil when the key clears the slot.
	name *string
}

type attachmentTimeline struct {
	slot int
	keys []attachmentKey
}

type eventKey struct {
	time float32
	data eventData
}

type animation struct {
	name        string
	duration    float32
	curves      []curveTimeline
	attachments []attachmentTimeline
	events      []eventKey
}

var _ spine.Animation = &animation{}

func (a *animation) Name() string {
	return a.name
}

func (a *animation) Duration() float32 {
	return a.duration
}

func readAnimation(name string, ja jsonAnimation, d *skeletonData, boneIndex, slotIndex map[string]int, scale float32) (*animation, error) {
	anim := &animation{name: name}
	grow := func(t float32) {
		anim.duration = max(anim.duration, t)
	}

	for boneName, timelines := range ja.Bones {
		bone, ok := boneIndex[boneName]
		if !ok {
			return nil, fmt.Errorf("bone %q not found", boneName)
		}
		for kindName, keys := range timelines {
			var kind timelineKind
			switch kindName {
			case "rotate":
				kind = timelineRotate
			case "translate":
				kind = timelineTranslate
			case "scale":
				kind = timelineScale
			default:
				continue
			}
			tl := curveTimeline{kind: kind, target: bone}
			for _, k := range keys {
				kf := keyframe{time: k.Time, stepped: k.stepped()}
				switch kind {
				case timelineRotate:
					kf.values[0] = orDefault(k.Value, orDefault(k.Angle, 0))
				case timelineTranslate:
					kf.values[0] = orDefault(k.X, 0) * scale
					kf.values[1] = orDefault(k.Y, 0) * scale
				case timelineScale:
					kf.values[0] = orDefault(k.X, 1)
					kf.values[1] = orDefault(k.Y, 1)
				}
				tl.keys = append(tl.keys, kf)
				grow(k.Time)
			}
			if len(tl.keys) > 0 {
				anim.curves = append(anim.curves, tl)
			}
		}
	}

	for slotName, timelines := range ja.Slots {
		slot, ok := slotIndex[slotName]
		if !ok {
			return nil, fmt.Errorf("slot %q not found", slotName)
		}
		for kindName, keys := range timelines {
			switch kindName {
			case "attachment":
				tl := attachmentTimeline{slot: slot}
				for _, k := range keys {
					tl.keys = append(tl.keys, attachmentKey{time: k.Time, name: k.Name})
					grow(k.Time)
				}
				anim.attachments = append(anim.attachments, tl)
			case "rgba", "color":
				tl := curveTimeline{kind: timelineColor, target: slot}
				for _, k := range keys {
					c, err := parseColor(k.Color, white)
					if err != nil {
						return nil, fmt.Errorf("slot %q: %w", slotName, err)
					}
					tl.keys = append(tl.keys, keyframe{time: k.Time, values: c, stepped: k.stepped()})
					grow(k.Time)
				}
				anim.curves = append(anim.curves, tl)
			}
		}
	}

	for _, je := range ja.Events {
		data, ok := d.events[je.Name]
		if !ok {
			return nil, fmt.Errorf("event %q not found", je.Name)
		}
		data.intValue = derefOr(je.Int, data.intValue)
		data.float = orDefault(je.Float, data.float)
		data.str = derefOr(je.String, data.str)
		if data.audioPath != "" {
			data.volume = orDefault(je.Volume, data.volume)
			data.balance = orDefault(je.Balance, data.balance)
		}
		anim.events = append(anim.events, eventKey{time: je.Time, data: data})
		grow(je.Time)
	}

	return anim, nil
}

// sample evaluates keys at time t, holding the first and last values outside the keyed range.
func sample(keys []keyframe, t float32) [4]float32 {
	if t <= keys[0].time {
		return keys[0].values
	}
	for i := len(keys) - 1; i >= 0; i-- {
		k := keys[i]
		if t < k.time {
			continue
		}
		if i == len(keys)-1 || k.stepped {
			return k.values
		}
		next := keys[i+1]
		alpha := (t - k.time) / (next.time - k.time)
		var out [4]float32
		for c := range out {
			out[c] = k.values[c] + (next.values[c]-k.values[c])*alpha
		}
		return out
	}
	return keys[0].values
}

// attachmentAt returns the key active at time t, or false before the first key.
func (tl attachmentTimeline) attachmentAt(t float32) (attachmentKey, bool) {
	for i := len(tl.keys) - 1; i >= 0; i-- {
		if tl.keys[i].time <= t {
			return tl.keys[i], true
		}
	}
	return attachmentKey{}, false
}

// fireEvents emits the custom events keyed in [from, to), or [from, to] when inclusiveEnd is set.
func (a *animation) fireEvents(from, to float32, inclusiveEnd bool, entry spine.TrackEntry, emit func(spine.Event)) {
	for _, e := range a.events {
		if e.time < from || e.time > to || (e.time == to && !inclusiveEnd) {
			continue
		}
		emit(spine.Event{
			Type:      spine.EventCustom,
			Track:     entry,
			Name:      e.data.name,
			Time:      e.time,
			Int:       e.data.intValue,
			Float:     e.data.float,
			String:    e.data.str,
			AudioPath: e.data.audioPath,
			Volume:    e.data.volume,
			Balance:   e.data.balance,
		})
	}
}
