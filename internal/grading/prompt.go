package grading

import (
	"fmt"

	"github.com/amagraneronline/curso-python/internal/ai"
)

const systemPrompt = `Eres un tutor de Python paciente que revisa ejercicios de alumnos principiantes.
No ejecutas código: simulas mentalmente lo que imprimiría el intérprete.

Responde SOLO con un objeto JSON con estas claves:
- "output": la salida que mostraría el terminal si se ejecutara el código (texto).
- "feedback": consejos constructivos en español: si está bien y cómo mejorarlo (texto).
- "isSuccess": true si el código cumple el objetivo del desafío, false si no (booleano).`

func buildMessages(req Request) []ai.Message {
	user := fmt.Sprintf(`Analiza el siguiente código Python del alumno comparándolo con el desafío propuesto.

Desafío: %s

Código del alumno:
`+"```python\n%s\n```", req.Challenge, req.Code)

	return []ai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: user},
	}
}
