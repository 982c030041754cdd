package assist

import "github.com/feedlift/feedlift-backend/pkg/enums"

// systemPrompts select the assistant persona per task type.
var systemPrompts = map[enums.TaskType]string{
	enums.TaskTypeGeneral: "Você é um assistente útil de uma loja de crescimento " +
		"para Instagram. Responda em português, de forma curta e direta.",
	enums.TaskTypeCustomerSupport: "Você é um atendente de suporte de uma loja de " +
		"serviços para Instagram (seguidores, curtidas, visualizações). Seja educado, " +
		"objetivo e resolva a dúvida do cliente em português.",
	enums.TaskTypeContentGeneration: "Você é um especialista em marketing digital " +
		"para Instagram. Crie conteúdo envolvente em português, adequado ao nicho " +
		"informado.",
	enums.TaskTypeHashtagSuggestion: "Você é um especialista em alcance no Instagram. " +
		"Sugira hashtags relevantes, uma por linha, sem texto adicional.",
	enums.TaskTypeCaptionWriting: "Você é um redator de legendas para Instagram. " +
		"Escreva legendas curtas e cativantes em português, com emojis quando couber.",
	enums.TaskTypeEmailTemplate: "Você é um redator de e-mail marketing. Escreva um " +
		"e-mail em português começando com uma linha 'Assunto:' seguida do corpo.",
}

// cannedResponses are the fixed fallbacks used when no provider is configured
// or the provider call fails.
var cannedResponses = map[enums.TaskType]string{
	enums.TaskTypeGeneral: "Olá! Somos especialistas em crescimento no Instagram. " +
		"Como posso ajudar você hoje?",
	enums.TaskTypeCustomerSupport: "Obrigado pelo contato! Nossa equipe analisará sua " +
		"solicitação e responderá em até 24 horas. Para consultas sobre pedidos, tenha " +
		"em mãos o e-mail usado na compra.",
	enums.TaskTypeContentGeneration: "🚀 Quer crescer no Instagram? Conteúdo consistente " +
		"e engajamento real são a chave. Poste nos horários de pico e interaja com seu " +
		"público todos os dias!",
	enums.TaskTypeHashtagSuggestion: "#instagram\n#crescimento\n#engajamento\n" +
		"#marketingdigital\n#seguidores\n#viral\n#conteudo\n#brasil",
	enums.TaskTypeCaptionWriting: "✨ Cada post é uma chance de conquistar seu público. " +
		"Qual história você vai contar hoje? 📸",
	enums.TaskTypeEmailTemplate: "Assunto: Impulsione seu Instagram hoje\n\nOlá!\n\n" +
		"Seu perfil merece mais alcance. Conheça nossos pacotes de crescimento e veja " +
		"resultados reais em poucos dias.\n\nAbraços,\nEquipe Feedlift",
}

func systemPromptFor(task enums.TaskType) string {
	if prompt, ok := systemPrompts[task]; ok {
		return prompt
	}
	return systemPrompts[enums.TaskTypeGeneral]
}

func cannedResponseFor(task enums.TaskType) string {
	if text, ok := cannedResponses[task]; ok {
		return text
	}
	return cannedResponses[enums.TaskTypeGeneral]
}
