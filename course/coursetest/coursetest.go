// Package coursetest writes small course packages to disk for tests.
package coursetest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/mbzmig/htmlfrag"
)

// Identifiers present in the sample package.
const (
	// TaggedID is the content id already referenced by lesson page C.
	TaggedID = "11111111-1111-4111-8111-111111111111"
	// EntryUUID is the idnumber already assigned to question bank entry 102.
	EntryUUID = "22222222-2222-4222-8222-222222222222"
	// CategoryIDNumber is the idnumber of category 2, which must never change.
	CategoryIDNumber = "$@NULL@$"

	PageAHTML = `<p>Page A</p>`
	PageBHTML = `<p style="color:red">Page B with <img src="b.png"></p>`
	PageHTML  = `<p>Welcome</p><p>Second<br>line</p>`
)

// Sample writes the sample package under a fresh temp dir and returns its root.
//
// Layout:
//   - lesson "Lesson One": pages stored in file order C, B, A, linked A→B→C.
//     C already holds a placeholder for TaggedID. A has an answer_text and a
//     blank response.
//   - page "Welcome Page"
//   - forum (unknown type, no activity file)
//   - quiz "Quiz One": slots stored as 2, 3, 1
//   - questions.xml: categories 1 (entries 101, 102), 2 (entries 201, 202), 3 (empty)
func Sample(t testing.TB) string {
	t.Helper()
	root := t.TempDir()
	Write(t, root, ManifestFile, Manifest)
	Write(t, root, "activities/lesson_10/lesson.xml", LessonXML)
	Write(t, root, "activities/page_11/page.xml", PageXML)
	Write(t, root, "activities/quiz_13/quiz.xml", QuizXML)
	Write(t, root, "questions.xml", QuestionsXML)
	return root
}

// Write writes content to root/rel, creating directories.
func Write(t testing.TB, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ManifestFile is the manifest name (mirrors course.ManifestFile).
const ManifestFile = "moodle_backup.xml"

var esc = htmlfrag.EscapeXMLText

// Manifest lists lesson, page, forum and quiz in that order.
var Manifest = `<?xml version="1.0" encoding="UTF-8"?>
<moodle_backup>
  <information>
    <name>sample.mbz</name>
    <contents>
      <activities>
        <activity>
          <moduleid>10</moduleid>
          <sectionid>1</sectionid>
          <modulename>lesson</modulename>
          <title>Lesson One</title>
          <directory>activities/lesson_10</directory>
        </activity>
        <activity>
          <moduleid>11</moduleid>
          <sectionid>1</sectionid>
          <modulename>page</modulename>
          <title>Welcome Page</title>
          <directory>activities/page_11</directory>
        </activity>
        <activity>
          <moduleid>12</moduleid>
          <sectionid>1</sectionid>
          <modulename>forum</modulename>
          <title>Forum</title>
          <directory>activities/forum_12</directory>
        </activity>
        <activity>
          <moduleid>13</moduleid>
          <sectionid>2</sectionid>
          <modulename>quiz</modulename>
          <title>Quiz One</title>
          <directory>activities/quiz_13</directory>
        </activity>
      </activities>
    </contents>
  </information>
</moodle_backup>
`

// LessonXML stores pages in file order C, B, A.
var LessonXML = `<?xml version="1.0" encoding="UTF-8"?>
<activity id="10" moduleid="10" modulename="lesson" contextid="50">
  <lesson id="1">
    <course>2</course>
    <name>Lesson One</name>
    <pages>
      <page id="3">
        <prevpageid>2</prevpageid>
        <nextpageid>0</nextpageid>
        <title>C</title>
        <contents>` + esc(`<div class="os-raise-content" data-content-id="`+TaggedID+`"></div>`) + `</contents>
        <answers>
        </answers>
      </page>
      <page id="2">
        <prevpageid>1</prevpageid>
        <nextpageid>3</nextpageid>
        <title>B</title>
        <contents>` + esc(PageBHTML) + `</contents>
        <answers>
        </answers>
      </page>
      <page id="1">
        <prevpageid>0</prevpageid>
        <nextpageid>2</nextpageid>
        <title>A</title>
        <contents>` + esc(PageAHTML) + `</contents>
        <answers>
          <answer id="7">
            <jumpto>-1</jumpto>
            <answer_text>Continue</answer_text>
            <response></response>
          </answer>
        </answers>
      </page>
    </pages>
  </lesson>
</activity>
`

// PageXML is a single content page.
var PageXML = `<?xml version="1.0" encoding="UTF-8"?>
<activity id="11" moduleid="11" modulename="page" contextid="51">
  <page id="4">
    <name>Welcome Page</name>
    <intro></intro>
    <content>` + esc(PageHTML) + `</content>
    <revision>1</revision>
  </page>
</activity>
`

// QuizXML stores slots in file order 2, 3, 1.
var QuizXML = `<?xml version="1.0" encoding="UTF-8"?>
<activity id="13" moduleid="13" modulename="quiz" contextid="53">
  <quiz id="5">
    <name>Quiz One</name>
    <question_instances>
      <question_instance id="21">
        <quizid>5</quizid>
        <slot>2</slot>
        <page>1</page>
        <question_reference id="31">
          <component>mod_quiz</component>
          <questionarea>slot</questionarea>
          <questionbankentryid>101</questionbankentryid>
          <version>$@NULL@$</version>
        </question_reference>
      </question_instance>
      <question_instance id="22">
        <quizid>5</quizid>
        <slot>3</slot>
        <page>2</page>
        <question_reference id="32">
          <component>mod_quiz</component>
          <questionarea>slot</questionarea>
          <questionbankentryid>102</questionbankentryid>
          <version>1</version>
        </question_reference>
      </question_instance>
      <question_instance id="23">
        <quizid>5</quizid>
        <slot>1</slot>
        <page>1</page>
        <question_reference id="33">
          <component>mod_quiz</component>
          <questionarea>slot</questionarea>
          <questionbankentryid>101</questionbankentryid>
          <version>1</version>
        </question_reference>
      </question_instance>
    </question_instances>
  </quiz>
</activity>
`

// QuestionsXML holds three categories.
var QuestionsXML = `<?xml version="1.0" encoding="UTF-8"?>
<question_categories>
  <question_category id="1">
    <name>Default</name>
    <idnumber>$@NULL@$</idnumber>
    <question_bank_entries>
      <question_bank_entry id="101">
        <questioncategoryid>1</questioncategoryid>
        <idnumber>$@NULL@$</idnumber>
        <question_version>
          <question_versions id="501">
            <version>1</version>
            <status>ready</status>
            <questions>
              <question id="1001">
                <parent>0</parent>
                <name>Q101 v1</name>
                <questiontext>` + esc(`<p>What is 1+1?</p>`) + `</questiontext>
                <generalfeedback></generalfeedback>
                <qtype>shortanswer</qtype>
              </question>
            </questions>
          </question_versions>
          <question_versions id="502">
            <version>2</version>
            <status>ready</status>
            <questions>
              <question id="1002">
                <parent>0</parent>
                <name>Q101 v2</name>
                <questiontext>` + esc(`<p>What is 1+1? (revised)</p>`) + `</questiontext>
                <generalfeedback>` + esc(`<p>Two.</p>`) + `</generalfeedback>
                <qtype>shortanswer</qtype>
              </question>
            </questions>
          </question_versions>
        </question_version>
      </question_bank_entry>
      <question_bank_entry id="102">
        <questioncategoryid>1</questioncategoryid>
        <idnumber>` + EntryUUID + `</idnumber>
        <question_version>
          <question_versions id="503">
            <version>1</version>
            <status>ready</status>
            <questions>
              <question id="1003">
                <parent>0</parent>
                <name>Q102</name>
                <questiontext>` + esc(`<p>Pick one</p>`) + `</questiontext>
                <generalfeedback></generalfeedback>
                <qtype>multichoice</qtype>
                <plugin_qtype_multichoice_question>
                  <answers>
                    <answer id="9001">
                      <answertext>` + esc(`<p>Yes</p>`) + `</answertext>
                      <fraction>1.0000000</fraction>
                      <feedback>` + esc(`<p>Right</p>`) + `</feedback>
                    </answer>
                    <answer id="9002">
                      <answertext>` + esc(`<p>No</p>`) + `</answertext>
                      <fraction>0.0000000</fraction>
                      <feedback></feedback>
                    </answer>
                  </answers>
                </plugin_qtype_multichoice_question>
              </question>
            </questions>
          </question_versions>
        </question_version>
      </question_bank_entry>
    </question_bank_entries>
  </question_category>
  <question_category id="2">
    <name>Unused</name>
    <idnumber>` + CategoryIDNumber + `</idnumber>
    <question_bank_entries>
      <question_bank_entry id="201">
        <questioncategoryid>2</questioncategoryid>
        <idnumber>$@NULL@$</idnumber>
        <question_version>
          <question_versions id="601">
            <version>1</version>
            <questions>
              <question id="2001">
                <name>Q201</name>
                <questiontext>` + esc(`<p>Unused one</p>`) + `</questiontext>
                <qtype>truefalse</qtype>
              </question>
            </questions>
          </question_versions>
        </question_version>
      </question_bank_entry>
      <question_bank_entry id="202">
        <questioncategoryid>2</questioncategoryid>
        <idnumber>$@NULL@$</idnumber>
        <question_version>
          <question_versions id="602">
            <version>1</version>
            <questions>
              <question id="2002">
                <name>Q202</name>
                <questiontext>` + esc(`<p>Unused two</p>`) + `</questiontext>
                <qtype>match</qtype>
                <plugin_qtype_match_question>
                  <matches>
                    <match id="7001">
                      <questiontext>` + esc(`<p>Left</p>`) + `</questiontext>
                      <answertext>Right</answertext>
                    </match>
                  </matches>
                </plugin_qtype_match_question>
              </question>
            </questions>
          </question_versions>
        </question_version>
      </question_bank_entry>
    </question_bank_entries>
  </question_category>
  <question_category id="3">
    <name>Empty</name>
    <idnumber>$@NULL@$</idnumber>
    <question_bank_entries>
    </question_bank_entries>
  </question_category>
</question_categories>
`
