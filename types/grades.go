package types

// Grade is one of the 7 majority-judgment grades, ordered best to
// worst: a lower value is a better grade.
type Grade int

const (
	GradeTresBien    Grade = iota + 1 // Très Bien
	GradeBien                         // Bien
	GradeAssezBien                    // Assez Bien
	GradePassable                     // Passable
	GradeInsuffisant                  // Insuffisant
	GradeARejeter                     // À Rejeter
	GradeNeSaitPas                    // Ne Sait Pas

	GradeBest  = GradeTresBien
	GradeWorst = GradeNeSaitPas
)

var gradeNames = map[Grade]string{
	GradeTresBien:    "Très Bien",
	GradeBien:        "Bien",
	GradeAssezBien:   "Assez Bien",
	GradePassable:    "Passable",
	GradeInsuffisant: "Insuffisant",
	GradeARejeter:    "À Rejeter",
	GradeNeSaitPas:   "Ne Sait Pas",
}

// Valid reports whether g is within the 7-grade scale.
func (g Grade) Valid() bool {
	return g >= GradeBest && g <= GradeWorst
}

func (g Grade) String() string {
	if name, ok := gradeNames[g]; ok {
		return name
	}
	return "unknown"
}
