package domain

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

type bankEntry struct {
	prompt  string
	answer  string
	options []string
}

var translationPhrases = []bankEntry{
	{prompt: "Hello", answer: "Привет", options: []string{"Привет", "Пока", "Спасибо", "Да"}},
	{prompt: "Thank you", answer: "Спасибо", options: []string{"Спасибо", "Пожалуйста", "Извините", "Нет"}},
	{prompt: "Good morning", answer: "Доброе утро", options: []string{"Добрый день", "Добрый вечер", "Доброй ночи", "Доброе утро"}},
	{prompt: "Goodbye", answer: "До свидания", options: []string{"До свидания", "Здравствуйте", "Удачи", "Скоро увидимся"}},
	{prompt: "Yes", answer: "Да", options: []string{"Да", "Нет", "Возможно", "Конечно"}},
	{prompt: "No", answer: "Нет", options: []string{"Нет", "Да", "Никогда", "Всегда"}},
	{prompt: "Please", answer: "Пожалуйста", options: []string{"Пожалуйста", "Спасибо", "Простите", "Хорошо"}},
	{prompt: "Sorry", answer: "Извините", options: []string{"Извините", "Пожалуйста", "Ничего", "Конечно"}},
	{prompt: "I don't understand", answer: "Я не понимаю", options: []string{"Я понимаю", "Я не понимаю", "Повторите", "Что это?"}},
	{prompt: "How are you?", answer: "Как дела?", options: []string{"Как дела?", "Что нового?", "Хорошо", "Плохо"}},
}

var sciPopQuestions = []bankEntry{
	{prompt: "Какая планета Солнечной системы известна своими кольцами?", answer: "Сатурн"},
	{prompt: "Какой химический элемент имеет символ \"O\"?", answer: "Кислород"},
	{prompt: "Как называется сила, притягивающая объекты друг к другу?", answer: "Гравитация"},
	{prompt: "Сколько костей в теле взрослого человека (примерно)?", answer: "206"},
	{prompt: "Какой газ преобладает в атмосфере Земли?", answer: "Азот"},
	{prompt: "Как называется процесс превращения воды в пар?", answer: "Испарение"},
	{prompt: "Кто сформулировал теорию относительности?", answer: "Альберт Эйнштейн"},
	{prompt: "Какое животное является самым большим на Земле?", answer: "Синий кит"},
	{prompt: "Как называется естественный спутник Земли?", answer: "Луна"},
	{prompt: "Из чего в основном состоят кометы?", answer: "Лед и пыль"},
}

// GenerateQuestions builds the round content for t using rng.
// It returns false for unregistered modes.
func GenerateQuestions(t GameType, rng *rand.Rand) ([]Question, bool) {
	spec, ok := LookupGame(t)
	if !ok {
		return nil, false
	}
	return spec.generate(rng, spec.TotalRounds), true
}

// drawWithoutReplacement shuffles a copy of bank and keeps the first n entries.
func drawWithoutReplacement(rng *rand.Rand, bank []bankEntry, n int) []bankEntry {
	pool := append([]bankEntry(nil), bank...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

func generateTranslation(rng *rand.Rand, rounds int) []Question {
	picked := drawWithoutReplacement(rng, translationPhrases, rounds)
	out := make([]Question, 0, len(picked))
	for _, p := range picked {
		out = append(out, Question{
			Text:          p.prompt,
			QuestionType:  QuestionTranslation,
			CorrectAnswer: p.answer,
			SourceLang:    "EN",
			TargetLang:    "RU",
			Options:       append([]string(nil), p.options...),
		})
	}
	return out
}

func generateSciPop(rng *rand.Rand, rounds int) []Question {
	picked := drawWithoutReplacement(rng, sciPopQuestions, rounds)
	out := make([]Question, 0, len(picked))
	for _, p := range picked {
		out = append(out, Question{
			Text:          p.prompt,
			QuestionType:  QuestionTextInput,
			CorrectAnswer: p.answer,
		})
	}
	return out
}

const (
	mathOperandMin = 1
	mathOperandMax = 20
)

var mathOperators = []struct {
	symbol string
	apply  func(a, b int) int
}{
	{"+", func(a, b int) int { return a + b }},
	{"-", func(a, b int) int { return a - b }},
	{"*", func(a, b int) int { return a * b }},
}

func generateMath(rng *rand.Rand, rounds int) []Question {
	out := make([]Question, 0, rounds)
	for i := 0; i < rounds; i++ {
		out = append(out, mathQuestion(rng))
	}
	return out
}

func mathQuestion(rng *rand.Rand) Question {
	a := mathOperandMin + rng.IntN(mathOperandMax-mathOperandMin+1)
	b := mathOperandMin + rng.IntN(mathOperandMax-mathOperandMin+1)
	op := mathOperators[rng.IntN(len(mathOperators))]

	// Subtraction never goes negative.
	if op.symbol == "-" && a < b {
		a, b = b, a
	}

	return Question{
		Text:          fmt.Sprintf("%d %s %d = ?", a, op.symbol, b),
		QuestionType:  QuestionMath,
		CorrectAnswer: strconv.Itoa(op.apply(a, b)),
	}
}
