package roster

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feeledger-dev/feeledger/internal/model"
)

func TestReadStudents_Canonicalizes(t *testing.T) {
	input := "student_id,class,section,roll,status,name\n" +
		"s1,lkg,a,007,active,Asha\n" +
		"s2,05,b,R12,left,Bilal\n" +
		"s3,3,A,12,,Chen\n"

	students, err := ReadStudents(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, students, 3)

	assert.Equal(t, model.StudentRecord{ID: "s1", Class: "LKG", Section: "A", Roll: "7", Status: model.StatusActive, Name: "Asha"}, students[0])
	assert.Equal(t, "5", students[1].Class)
	assert.Equal(t, model.StatusLeft, students[1].Status)
	assert.Equal(t, model.StatusActive, students[2].Status)
}

func TestReadStudents_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong field count", "student_id,class,section,roll,status,name\ns1,3,A\n"},
		{"missing id", "student_id,class,section,roll,status,name\n,3,A,1,active,X\n"},
		{"bad status", "student_id,class,section,roll,status,name\ns1,3,A,1,expelled?,X\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadStudents(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "row 2")
		})
	}
}

func TestReadStudents_DuplicateID(t *testing.T) {
	input := "student_id,class,section,roll,status,name\n" +
		"s1,3,A,12,active,Asha\n" +
		"s2,3,A,13,active,Bilal\n" +
		"s1,3,B,4,active,Asha again\n"

	_, err := ReadStudents(strings.NewReader(input))
	require.ErrorIs(t, err, ErrDuplicateStudent)
	assert.Contains(t, err.Error(), "row 4")
	assert.Contains(t, err.Error(), "first on row 2")
}

func TestWriteReadRoundTrip(t *testing.T) {
	want := []model.StudentRecord{
		{ID: "s1", Class: "3", Section: "A", Roll: "12", Status: model.StatusActive, Name: "Asha"},
		{ID: "s2", Class: "UKG", Section: "B", Roll: "1", Status: model.StatusLeft, Name: "Bilal, Jr."},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteStudents(&buf, want))

	got, err := ReadStudents(&buf)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadStudents_Empty(t *testing.T) {
	students, err := ReadStudents(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, students)
}
