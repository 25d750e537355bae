package decoder

type Kind int

const (
	KindOther Kind = iota
	KindAchievements
	KindArtifacts
)

func (k Kind) String() string {
	switch k {
	case KindAchievements:
		return "achievements"
	case KindArtifacts:
		return "artifacts"
	} // end switch
	return "other"
} // end String()

// achievement statuses 2 (finished) and 3 (reward taken) count as unlocked
const (
	ACHIEVEMENT_STATUS_FINISHED     uint32 = 2
	ACHIEVEMENT_STATUS_REWARD_TAKEN uint32 = 3
)

type AchievementRecord struct {
	ID     uint32
	Status uint32
} // end type

func (r AchievementRecord) Unlocked() bool {
	return r.Status == ACHIEVEMENT_STATUS_FINISHED || r.Status == ACHIEVEMENT_STATUS_REWARD_TAKEN
} // end Unlocked()

type ArtifactRaw struct {
	ID            uint32 // template id
	Level         uint32 // 1-based
	MainPropID    uint32
	AppendPropIDs []uint32
	Locked        bool
} // end type

type Command struct {
	ID           uint16
	Achievements []AchievementRecord
	Artifacts    []ArtifactRaw
	kind         Kind
} // end type

func NewAchievementsCommand(id uint16, records []AchievementRecord) Command {
	return Command{ID: id, Achievements: records, kind: KindAchievements}
} // end NewAchievementsCommand()

func NewArtifactsCommand(id uint16, records []ArtifactRaw) Command {
	return Command{ID: id, Artifacts: records, kind: KindArtifacts}
} // end NewArtifactsCommand()

func (c Command) Kind() Kind {
	return c.kind
} // end Kind()

// Decoder turns one captured frame into zero or more commands.
// The second return value is false when the frame did not complete any unit.
type Decoder interface {
	Process(raw []byte) ([]Command, bool)
}

type DecoderFunc func(raw []byte) ([]Command, bool)

func (fn DecoderFunc) Process(raw []byte) ([]Command, bool) {
	return fn(raw)
} // end Process()
