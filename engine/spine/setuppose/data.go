package setuppose

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-spine/engine/spine"
	"github.com/Carmen-Shannon/oxy-spine/engine/spine/atlas"
	"github.com/go-gl/mathgl/mgl32"
)

type boneData struct {
	name                           string
	parent                         int
	x, y, rotation, scaleX, scaleY float32
}

type slotData struct {
	name       string
	bone       int
	color      [4]float32
	dark       [4]float32
	hasDark    bool
	attachment string
	blend      spine.BlendMode
}

type attachmentKind int

const (
	kindRegion attachmentKind = iota
	kindMesh
	kindBoundingBox
)

type attachmentData struct {
	kind  attachmentKind
	name  string
	page  spine.PageRef
	color [4]float32

	// region
	local         mgl32.Mat3
	width, height float32
	quadUVs       [4][2]float32

	// mesh and bounding box
	uvs       [][2]float32
	triangles []uint16
	vertices  []float32
	weighted  bool
	count     int
}

type slotKey struct {
	slot int
	name string
}

type skinData struct {
	name        string
	attachments map[slotKey]*attachmentData
}

type eventData struct {
	name      string
	intValue  int32
	float     float32
	str       string
	audioPath string
	volume    float32
	balance   float32
}

type skeletonData struct {
	bones       []boneData
	slots       []slotData
	skins       []*skinData
	defaultSkin *skinData
	events      map[string]eventData
	animations  map[string]*animation
	animOrder   []string
	pma         bool
}

func (d *skeletonData) findSkin(name string) *skinData {
	for _, s := range d.skins {
		if s.name == name {
			return s
		}
	}
	return nil
}

// json shapes

type jsonSkeleton struct {
	Bones      []jsonBone               `json:"bones"`
	Slots      []jsonSlot               `json:"slots"`
	Skins      json.RawMessage          `json:"skins"`
	Events     map[string]jsonEvent     `json:"events"`
	Animations map[string]jsonAnimation `json:"animations"`
}

type jsonBone struct {
	Name     string   `json:"name"`
	Parent   string   `json:"parent"`
	X        float32  `json:"x"`
	Y        float32  `json:"y"`
	Rotation float32  `json:"rotation"`
	ScaleX   *float32 `json:"scaleX"`
	ScaleY   *float32 `json:"scaleY"`
}

type jsonSlot struct {
	Name       string `json:"name"`
	Bone       string `json:"bone"`
	Color      string `json:"color"`
	Dark       string `json:"dark"`
	Attachment string `json:"attachment"`
	Blend      string `json:"blend"`
}

type jsonSkin struct {
	Name        string                               `json:"name"`
	Attachments map[string]map[string]jsonAttachment `json:"attachments"`
}

type jsonAttachment struct {
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	X           float32   `json:"x"`
	Y           float32   `json:"y"`
	Rotation    float32   `json:"rotation"`
	ScaleX      *float32  `json:"scaleX"`
	ScaleY      *float32  `json:"scaleY"`
	Width       float32   `json:"width"`
	Height      float32   `json:"height"`
	Color       string    `json:"color"`
	UVs         []float32 `json:"uvs"`
	Triangles   []int     `json:"triangles"`
	Vertices    []float32 `json:"vertices"`
	VertexCount int       `json:"vertexCount"`
}

type jsonEvent struct {
	Time    float32  `json:"time"`
	Name    string   `json:"name"`
	Int     *int32   `json:"int"`
	Float   *float32 `json:"float"`
	String  *string  `json:"string"`
	Audio   string   `json:"audio"`
	Volume  *float32 `json:"volume"`
	Balance *float32 `json:"balance"`
}

type jsonAnimation struct {
	Bones  map[string]map[string][]jsonKey `json:"bones"`
	Slots  map[string]map[string][]jsonKey `json:"slots"`
	Events []jsonEvent                     `json:"events"`
}

type jsonKey struct {
	Time  float32         `json:"time"`
	Value *float32        `json:"value"`
	Angle *float32        `json:"angle"`
	X     *float32        `json:"x"`
	Y     *float32        `json:"y"`
	Name  *string         `json:"name"`
	Color string          `json:"color"`
	Curve json.RawMessage `json:"curve"`
}

func (k jsonKey) stepped() bool {
	var s string
	return json.Unmarshal(k.Curve, &s) == nil && s == "stepped"
}

func orDefault(v *float32, def float32) float32 {
	if v == nil {
		return def
	}
	return *v
}

// parseColor reads an RRGGBB or RRGGBBAA hex color.
func parseColor(s string, def [4]float32) ([4]float32, error) {
	if s == "" {
		return def, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil || (len(b) != 3 && len(b) != 4) {
		return def, fmt.Errorf("invalid color %q", s)
	}
	c := [4]float32{1, 1, 1, 1}
	for i, v := range b {
		c[i] = float32(v) / 255
	}
	return c, nil
}

var white = [4]float32{1, 1, 1, 1}

func readSkeleton(raw []byte, a *atlas.Atlas, pages []spine.Page, scale float32) (*skeletonData, error) {
	var js jsonSkeleton
	if err := json.Unmarshal(raw, &js); err != nil {
		return nil, fmt.Errorf("invalid skeleton json: %w", err)
	}

	d := &skeletonData{
		events:     make(map[string]eventData),
		animations: make(map[string]*animation),
		pma:        a.PremultipliedAlpha(),
	}

	boneIndex := make(map[string]int, len(js.Bones))
	for i, b := range js.Bones {
		parent := -1
		if b.Parent != "" {
			p, ok := boneIndex[b.Parent]
			if !ok {
				return nil, fmt.Errorf("bone %q: parent %q not found", b.Name, b.Parent)
			}
			parent = p
		}
		boneIndex[b.Name] = i
		d.bones = append(d.bones, boneData{
			name:     b.Name,
			parent:   parent,
			x:        b.X * scale,
			y:        b.Y * scale,
			rotation: b.Rotation,
			scaleX:   orDefault(b.ScaleX, 1),
			scaleY:   orDefault(b.ScaleY, 1),
		})
	}

	slotIndex := make(map[string]int, len(js.Slots))
	for i, s := range js.Slots {
		bone, ok := boneIndex[s.Bone]
		if !ok {
			return nil, fmt.Errorf("slot %q: bone %q not found", s.Name, s.Bone)
		}
		color, err := parseColor(s.Color, white)
		if err != nil {
			return nil, fmt.Errorf("slot %q: %w", s.Name, err)
		}
		dark, err := parseColor(s.Dark, [4]float32{})
		if err != nil {
			return nil, fmt.Errorf("slot %q: %w", s.Name, err)
		}
		blend := spine.BlendModeNormal
		if s.Blend != "" {
			if blend, ok = spine.ParseBlendMode(s.Blend); !ok {
				return nil, fmt.Errorf("slot %q: unknown blend mode %q", s.Name, s.Blend)
			}
		}
		slotIndex[s.Name] = i
		d.slots = append(d.slots, slotData{
			name:       s.Name,
			bone:       bone,
			color:      color,
			dark:       dark,
			hasDark:    s.Dark != "",
			attachment: s.Attachment,
			blend:      blend,
		})
	}

	skins, err := readSkins(js.Skins)
	if err != nil {
		return nil, err
	}
	for _, sk := range skins {
		skin := &skinData{name: sk.Name, attachments: make(map[slotKey]*attachmentData)}
		for slotName, atts := range sk.Attachments {
			si, ok := slotIndex[slotName]
			if !ok {
				return nil, fmt.Errorf("skin %q: slot %q not found", sk.Name, slotName)
			}
			for attName, ja := range atts {
				att, err := readAttachment(attName, ja, a, pages, scale)
				if err != nil {
					return nil, fmt.Errorf("skin %q, slot %q: %w", sk.Name, slotName, err)
				}
				skin.attachments[slotKey{si, attName}] = att
			}
		}
		d.skins = append(d.skins, skin)
		if skin.name == "default" {
			d.defaultSkin = skin
		}
	}

	for name, e := range js.Events {
		d.events[name] = eventData{
			name:      name,
			intValue:  derefOr(e.Int, 0),
			float:     orDefault(e.Float, 0),
			str:       derefOr(e.String, ""),
			audioPath: e.Audio,
			volume:    orDefault(e.Volume, 1),
			balance:   orDefault(e.Balance, 0),
		}
	}

	for name, ja := range js.Animations {
		anim, err := readAnimation(name, ja, d, boneIndex, slotIndex, scale)
		if err != nil {
			return nil, fmt.Errorf("animation %q: %w", name, err)
		}
		d.animations[name] = anim
		d.animOrder = append(d.animOrder, name)
	}
	sort.Strings(d.animOrder)

	return d, nil
}

func derefOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

// readSkins accepts both the array layout and the older name-keyed object layout.
func readSkins(raw json.RawMessage) ([]jsonSkin, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []jsonSkin
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var byName map[string]map[string]map[string]jsonAttachment
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("invalid skins: %w", err)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		list = append(list, jsonSkin{Name: name, Attachments: byName[name]})
	}
	return list, nil
}

func readAttachment(key string, ja jsonAttachment, a *atlas.Atlas, pages []spine.Page, scale float32) (*attachmentData, error) {
	name := key
	if ja.Name != "" {
		name = ja.Name
	}
	path := name
	if ja.Path != "" {
		path = ja.Path
	}
	color, err := parseColor(ja.Color, white)
	if err != nil {
		return nil, fmt.Errorf("attachment %q: %w", name, err)
	}
	att := &attachmentData{name: name, color: color}

	switch ja.Type {
	case "", "region":
		att.kind = kindRegion
		region, ok := a.Region(path)
		if !ok {
			return nil, fmt.Errorf("attachment %q: region %q not found in atlas", name, path)
		}
		att.page = pages[region.Page].Ref
		att.width, att.height = ja.Width*scale, ja.Height*scale
		att.local = mgl32.Translate2D(ja.X*scale, ja.Y*scale).
			Mul3(mgl32.HomogRotate2D(mgl32.DegToRad(ja.Rotation))).
			Mul3(mgl32.Scale2D(orDefault(ja.ScaleX, 1), orDefault(ja.ScaleY, 1)))
		att.quadUVs = regionUVs(region)

	case "mesh":
		att.kind = kindMesh
		region, ok := a.Region(path)
		if !ok {
			return nil, fmt.Errorf("attachment %q: region %q not found in atlas", name, path)
		}
		att.page = pages[region.Page].Ref
		if len(ja.UVs)%2 != 0 {
			return nil, fmt.Errorf("attachment %q: odd uv count", name)
		}
		att.count = len(ja.UVs) / 2
		att.uvs = meshUVs(ja.UVs, region)
		for _, t := range ja.Triangles {
			if t < 0 || t >= att.count {
				return nil, fmt.Errorf("attachment %q: triangle index %d out of range", name, t)
			}
			att.triangles = append(att.triangles, uint16(t))
		}
		att.weighted = len(ja.Vertices) != len(ja.UVs)
		att.vertices = scaleVertices(ja.Vertices, att.weighted, scale)

	case "boundingbox":
		att.kind = kindBoundingBox
		att.count = ja.VertexCount
		att.weighted = len(ja.Vertices) != ja.VertexCount*2
		att.vertices = scaleVertices(ja.Vertices, att.weighted, scale)

	default:
		return nil, fmt.Errorf("attachment %q: unsupported type %q", name, ja.Type)
	}
	return att, nil
}

// regionUVs returns the texture coordinates of a region quad in BL, TL, TR, BR order.
func regionUVs(r atlas.Region) [4][2]float32 {
	if r.Rotated() {
		return [4][2]float32{{r.U2, r.V2}, {r.U, r.V2}, {r.U, r.V}, {r.U2, r.V}}
	}
	return [4][2]float32{{r.U, r.V2}, {r.U, r.V}, {r.U2, r.V}, {r.U2, r.V2}}
}

// meshUVs maps region-relative mesh coordinates onto the atlas page.
func meshUVs(raw []float32, r atlas.Region) [][2]float32 {
	w, h := r.U2-r.U, r.V2-r.V
	out := make([][2]float32, len(raw)/2)
	for i := range out {
		u, v := raw[i*2], raw[i*2+1]
		if r.Rotated() {
			out[i] = [2]float32{r.U + v*w, r.V + (1-u)*h}
		} else {
			out[i] = [2]float32{r.U + u*w, r.V + v*h}
		}
	}
	return out
}

// scaleVertices applies the skeleton scale to positions. Weighted vertex lists are laid out as
// repeated [boneCount, (bone, x, y, weight) * boneCount] groups.
func scaleVertices(v []float32, weighted bool, scale float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	if scale == 1 {
		return out
	}
	if !weighted {
		for i := range out {
			out[i] *= scale
		}
		return out
	}
	for i := 0; i < len(out); {
		n := int(out[i])
		i++
		for j := 0; j < n && i+3 < len(out); j++ {
			out[i+1] *= scale
			out[i+2] *= scale
			i += 4
		}
	}
	return out
}
