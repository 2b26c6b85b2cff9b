package grading

import "areca-grader/api/internal/llm"

const gradePrompt = `You are an expert in areca nut grading.

You will analyze the provided image of areca nuts and determine their grade based on visual characteristics such as size, color, and apparent defects. Provide a reason for the grade you assign.

You will also estimate the percentage of the sample that is of the best quality, the percentage that is of the worst quality, and the percentage that appears to be damaged.

Analyze the attached image.`

const qualityPrompt = `You are an expert in areca nut quality assessment. Analyze the provided image and estimate the percentage of areca nuts that are of the best quality and the percentage that are of the worst quality. Return your estimates as two numbers that sum to 100.

The image is attached.

Ensure that the outputted percentages accurately reflect the visual characteristics of the areca nuts in the provided image, considering factors such as color, size, shape, and overall appearance.`

// InputSchema is the fixed input shared by every variant.
var InputSchema = llm.Schema{
	Fields: []llm.Field{{
		Name:        "photoDataUri",
		Type:        llm.TypeString,
		Description: "A photo of areca nuts, as a data URI that must include a MIME type and use Base64 encoding. Expected format: 'data:<mimetype>;base64,<encoded_data>'.",
	}},
}

var GradeVariant = Variant[Result]{
	Name:   "grade",
	Prompt: gradePrompt,
	Schema: llm.Schema{
		Description: "Grade and quality breakdown of an areca nut sample.",
		Fields: []llm.Field{
			{Name: "grade", Type: llm.TypeString, Description: "The grade of the areca nuts (e.g., A, B, C)."},
			{Name: "gradingReason", Type: llm.TypeString, Description: "The reasoning for assigning the grade, based on visual characteristics."},
			{Name: "bestQualityPercentage", Type: llm.TypeNumber, Description: "The estimated percentage of best quality areca nuts in the sample."},
			{Name: "worstQualityPercentage", Type: llm.TypeNumber, Description: "The estimated percentage of worst quality areca nuts in the sample."},
			{Name: "damagedPercentage", Type: llm.TypeNumber, Description: "The estimated percentage of visibly damaged areca nuts in the sample."},
		},
	},
}

var QualityVariant = Variant[Quality]{
	Name:   "quality",
	Prompt: qualityPrompt,
	Schema: llm.Schema{
		Description: "Best versus worst quality split of an areca nut sample.",
		Fields: []llm.Field{
			{Name: "bestQualityPercentage", Type: llm.TypeNumber, Description: "The estimated percentage of best quality areca nuts in the image."},
			{Name: "worstQualityPercentage", Type: llm.TypeNumber, Description: "The estimated percentage of worst quality areca nuts in the image."},
		},
	},
}
