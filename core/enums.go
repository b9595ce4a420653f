package core

// Subject is a teaching subject shared by teachers, course groups and courses.
type Subject string

const (
	SubjectEnglish     Subject = "ENGLISH"
	SubjectIELTS       Subject = "IELTS"
	SubjectKazakh      Subject = "KAZAKH"
	SubjectRussian     Subject = "RUSSIAN"
	SubjectMath        Subject = "MATH"
	SubjectPhysics     Subject = "PHYSICS"
	SubjectChemistry   Subject = "CHEMISTRY"
	SubjectBiology     Subject = "BIOLOGY"
	SubjectHistory     Subject = "HISTORY"
	SubjectIT          Subject = "IT"
	SubjectProgramming Subject = "PROGRAMMING"
	SubjectNISPrep     Subject = "NIS_PREP"
	SubjectENTPrep     Subject = "ENT_PREP"
	SubjectOther       Subject = "OTHER"
)

var Subjects = []Subject{
	SubjectEnglish, SubjectIELTS, SubjectKazakh, SubjectRussian, SubjectMath, SubjectPhysics, SubjectChemistry,
	SubjectBiology, SubjectHistory, SubjectIT, SubjectProgramming, SubjectNISPrep, SubjectENTPrep, SubjectOther,
}

func (s Subject) Valid() bool {
	for _, sub := range Subjects {
		if s == sub {
			return true
		}
	}
	return false
}

// HasSubject reports whether `s` is part of `subjects`.
func HasSubject(subjects []Subject, s Subject) bool {
	for _, sub := range subjects {
		if sub == s {
			return true
		}
	}
	return false
}

// Level is a course difficulty on the CEFR scale.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

func (l Level) Valid() bool {
	switch l {
	case LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2:
		return true
	}
	return false
}
