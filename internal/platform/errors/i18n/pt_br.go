package i18n

var ptBR = map[Code]string{
	CodeRequirementLeafChildren:   "Um requisito simples não pode conter outros requisitos",
	CodeRequirementCycle:          "Um grupo não pode ser movido para dentro de si mesmo",
	CodeRequirementNotFound:       "O requisito não existe mais",
	CodeRequirementUnknownKind:    "Tipo de requisito desconhecido {{.kind}}",
	CodeRequirementKindMismatch:   "Um grupo não pode virar um requisito simples",
	CodeRequirementGroupEmpty:     "O grupo {{.kind}} não tem requisitos",
	CodeRequirementInvalidPayload: "Os dados do requisito estão incompletos",
	CodeHistoryInvalidOperation:   "A alteração não pôde ser registrada",
	CodeHistoryUndoFailed:         "Nada para desfazer",
	CodeHistoryRedoFailed:         "Nada para refazer",
	CodeDropRejected:              "O requisito não pode ser solto aí",
	CodeDragPayloadInvalid:        "O item arrastado não é um requisito válido",
	CodeDefinitionNotFound:        "Definição de regra não encontrada",
	CodeDefinitionNameEmpty:       "O nome da definição de regra é obrigatório",
	CodeDefinitionEmptyCampaignID: "A campanha da definição de regra é obrigatória",
	CodeSessionNotFound:           "Sessão de edição não encontrada",
	CodeSessionWrongMode:          "Nenhum requisito está sendo movido agora",
	CodeSessionNodeMissing:        "O requisito não faz parte desta definição",
	CodeNotFound:                  "Registro não encontrado",

	MsgNodeAdded:    "Adicionado {{.node}}",
	MsgNodeMoved:    "Movido {{.node}} para {{.container}}",
	MsgNodeUpdated:  "Atualizado {{.node}}",
	MsgNodeDeleted:  "Excluído {{.node}}",
	MsgChangeUndone: "Última alteração desfeita",
	MsgChangeRedone: "Última alteração refeita",
}
